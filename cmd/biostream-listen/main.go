package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/biostream/pkg/biostream/discovery"
	"github.com/norasector/biostream/pkg/biostream/output"
	"github.com/norasector/biostream/pkg/types"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	addr := flag.String("addr", "", "stream address host:port; browses mDNS when empty")
	name := flag.String("name", "", "stream name to look for")
	contentType := flag.String("type", "", "stream content type to look for")
	browseTime := flag.Duration("browse", 3*time.Second, "how long to browse for streams")
	renew := flag.Duration("renew", 5*time.Second, "subscription renewal interval")
	flag.Parse()

	var labels []string
	if *addr == "" {
		ctx, cancel := context.WithTimeout(context.Background(), *browseTime)
		streams, err := discovery.Browse(ctx, discovery.MatchName(*name, *contentType))
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("error browsing for streams")
		}
		if len(streams) == 0 {
			log.Fatal().Msg("no streams found")
		}
		for _, s := range streams {
			log.Info().
				Str("instance", s.Instance).
				Str("host", s.Hostname).
				Int("port", s.Port).
				Strs("channels", s.Info.Channels).
				Msg("found stream")
		}
		*addr, err = streams[0].Addr()
		if err != nil {
			log.Fatal().Err(err).Msg("unusable stream")
		}
		labels = streams[0].Info.Channels
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		cancel()
		return nil
	})

	printer := output.NewWriterOutput(os.Stdout, labels)
	eg.Go(func() error {
		return printer.Start(ctx)
	})

	eg.Go(func() error {
		log.Info().Str("addr", *addr).Msg("subscribing")
		return output.Subscribe(ctx, *addr, *renew, func(s *types.TaggedSample) {
			select {
			case printer.Receive() <- s:
			case <-ctx.Done():
			}
		})
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exited program")
	}
}
