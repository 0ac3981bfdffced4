package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/biostream/pkg/types"
)

const maxDatagram = 65535

// Subscribe registers with the stream at addr and calls fn with every sample
// it receives until ctx is done. The subscription is renewed every renew
// interval and withdrawn on return.
func Subscribe(ctx context.Context, addr string, renew time.Duration, fn func(*types.TaggedSample)) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolving stream %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("dialing stream %s: %w", addr, err)
	}
	if renew <= 0 {
		renew = defaultSubscriberTTL / 2
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// closing the socket also ends the read loop
		defer conn.Close()
		ticker := time.NewTicker(renew)
		defer ticker.Stop()
		for {
			if _, err := conn.Write([]byte(SubscribeMessage)); err != nil {
				return fmt.Errorf("subscribing to %s: %w", addr, err)
			}
			select {
			case <-ctx.Done():
				conn.Write([]byte(UnsubscribeMessage))
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	eg.Go(func() error {
		buf := make([]byte, maxDatagram)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				// Nothing listens on the port yet; the next renewal retries.
				log.Debug().Err(err).Str("stream", addr).Msg("stream read failed")
				continue
			}

			rest := buf[:n]
			for len(rest) > 0 {
				var msg []byte
				msg, rest, err = types.SplitDatagram(rest)
				if err != nil {
					log.Warn().Err(err).Str("stream", addr).Msg("dropping malformed datagram")
					break
				}
				sample, err := types.UnmarshalTaggedSample(msg)
				if err != nil {
					log.Warn().Err(err).Str("stream", addr).Msg("dropping malformed sample")
					continue
				}
				fn(sample)
			}
		}
	})

	return eg.Wait()
}
