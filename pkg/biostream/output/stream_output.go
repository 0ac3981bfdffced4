package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/biostream/pkg/biostream/config"
	"github.com/norasector/biostream/pkg/types"
	"github.com/norasector/biostream/pkg/util"
)

const (
	receiveChannels      = 64
	defaultSubscriberTTL = 10 * time.Second
	maxControlMessage    = 512

	// Consumers send SubscribeMessage to the stream port and repeat it
	// before the subscription expires.
	SubscribeMessage   = "subscribe"
	UnsubscribeMessage = "unsubscribe"
)

// SampleUDPOutput publishes samples as length prefixed datagrams to static
// destinations and to every consumer that has subscribed on its port. When
// nobody is listening samples are dropped before encoding.
type SampleUDPOutput struct {
	port          int
	dests         []config.OutputDestination
	recvChan      chan *types.TaggedSample
	metrics       api.WriteAPI
	subscriberTTL time.Duration

	mu          sync.Mutex
	subscribers map[string]*subscriber
	addr        net.Addr
	ready       chan struct{}
}

type subscriber struct {
	addr    *net.UDPAddr
	expires time.Time
}

type UDPOption func(s *SampleUDPOutput)

func WithSubscriberTTL(ttl time.Duration) UDPOption {
	return func(s *SampleUDPOutput) {
		if ttl > 0 {
			s.subscriberTTL = ttl
		}
	}
}

func WithMetrics(metrics api.WriteAPI) UDPOption {
	return func(s *SampleUDPOutput) {
		s.metrics = metrics
	}
}

// NewSampleUDPOutput listens on port; zero picks a free port.
func NewSampleUDPOutput(port int, dests []config.OutputDestination, opts ...UDPOption) *SampleUDPOutput {
	s := &SampleUDPOutput{
		port:          port,
		dests:         dests,
		recvChan:      make(chan *types.TaggedSample, receiveChannels),
		metrics:       &util.DiscardWriteAPI{},
		subscriberTTL: defaultSubscriberTTL,
		subscribers:   make(map[string]*subscriber),
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SampleUDPOutput) Receive() chan<- *types.TaggedSample {
	return s.recvChan
}

// Ready is closed once the stream port is bound.
func (s *SampleUDPOutput) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the bound stream address. It is nil before Ready.
func (s *SampleUDPOutput) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *SampleUDPOutput) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *SampleUDPOutput) Start(ctx context.Context) error {
	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {
		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("stream destination added")
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.port})
	if err != nil {
		return fmt.Errorf("listening on stream port %d: %w", s.port, err)
	}
	s.mu.Lock()
	s.addr = conn.LocalAddr()
	s.mu.Unlock()
	close(s.ready)
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("stream output listening")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return ctx.Err()
	})
	eg.Go(func() error {
		return s.listen(ctx, conn)
	})
	eg.Go(func() error {
		return s.send(ctx, conn, destAddrs)
	})
	return eg.Wait()
}

func (s *SampleUDPOutput) listen(ctx context.Context, conn *net.UDPConn) error {
	buf := make([]byte, maxControlMessage)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn().Err(err).Msg("error reading subscription")
			continue
		}
		s.handleControl(strings.TrimSpace(string(buf[:n])), addr, time.Now())
	}
}

func (s *SampleUDPOutput) handleControl(msg string, addr *net.UDPAddr, now time.Time) {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg == UnsubscribeMessage {
		if _, ok := s.subscribers[key]; ok {
			delete(s.subscribers, key)
			log.Info().Str("consumer", key).Msg("consumer unsubscribed")
		}
		return
	}

	sub, ok := s.subscribers[key]
	if !ok {
		sub = &subscriber{addr: addr}
		s.subscribers[key] = sub
		log.Info().Str("consumer", key).Msg("consumer subscribed")
	}
	sub.expires = now.Add(s.subscriberTTL)
}

// targets drops expired subscribers and returns everyone a sample goes to.
func (s *SampleUDPOutput) targets(static []*net.UDPAddr, now time.Time) []*net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := append([]*net.UDPAddr(nil), static...)
	for key, sub := range s.subscribers {
		if now.After(sub.expires) {
			delete(s.subscribers, key)
			log.Info().Str("consumer", key).Msg("consumer subscription expired")
			continue
		}
		ret = append(ret, sub.addr)
	}
	return ret
}

func (s *SampleUDPOutput) send(ctx context.Context, conn *net.UDPConn, static []*net.UDPAddr) error {
	var msgBuf, frameBuf []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-s.recvChan:
			targets := s.targets(static, time.Now())
			if len(targets) == 0 {
				go s.metrics.WritePoint(influxdb2.NewPoint("stream.sample",
					nil,
					map[string]interface{}{"no_consumers": 1},
					time.Now()))
				continue
			}

			msgBuf = sample.AppendProto(msgBuf[:0])
			var err error
			frameBuf, err = types.AppendDatagram(frameBuf[:0], msgBuf)
			if err != nil {
				log.Warn().Err(err).Msg("error framing sample")
				continue
			}

			sent, dropped, bytesWritten := 0, 0, 0
			for _, addr := range targets {
				n, err := conn.WriteToUDP(frameBuf, addr)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Error().Err(err).Str("consumer", addr.String()).Msg("error writing sample")
					dropped++
					continue
				}
				sent++
				bytesWritten += n
			}

			go s.metrics.WritePoint(influxdb2.NewPoint("stream.sample",
				nil,
				map[string]interface{}{
					"consumers":      len(targets),
					"sent":           sent,
					"dropped":        dropped,
					"bytes_written":  bytesWritten,
					"encoded_length": len(msgBuf),
				}, time.Now()))
		}
	}
}
