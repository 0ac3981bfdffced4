// Package discovery advertises sample streams over mDNS and finds them.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"

	"github.com/norasector/biostream/pkg/types"
)

const (
	Service = "_biostream._udp"
	Domain  = "local."
)

// Stream is a discovered sample stream.
type Stream struct {
	Instance  string
	Hostname  string
	Addresses []net.IP
	Port      int
	Info      types.StreamInfo
}

// Addr picks an address to subscribe to, preferring IPv4.
func (s Stream) Addr() (string, error) {
	if len(s.Addresses) == 0 {
		return "", fmt.Errorf("stream %q has no addresses", s.Instance)
	}
	ip := s.Addresses[0]
	for _, addr := range s.Addresses {
		if addr.To4() != nil {
			ip = addr
			break
		}
	}
	return net.JoinHostPort(ip.String(), fmt.Sprint(s.Port)), nil
}

// Advertise registers the stream until ctx is done.
func Advertise(ctx context.Context, info types.StreamInfo, port int) error {
	server, err := zeroconf.Register(instanceName(info), Service, Domain, port, info.TXT(), nil)
	if err != nil {
		return fmt.Errorf("registering mdns service: %w", err)
	}
	log.Info().Str("instance", instanceName(info)).Int("port", port).Msg("advertising stream")

	<-ctx.Done()
	server.Shutdown()
	return ctx.Err()
}

func instanceName(info types.StreamInfo) string {
	if info.SourceID == "" {
		return info.Name
	}
	return info.Name + " " + info.SourceID
}

// Browse collects streams until ctx is done. Entries are deduplicated by
// host and port; match, when set, filters them.
func Browse(ctx context.Context, match func(Stream) bool) ([]Stream, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	results := make(map[string]Stream)
	var order []string

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				stream, ok := fromEntry(e)
				if !ok || (match != nil && !match(stream)) {
					continue
				}
				key := fmt.Sprintf("%s|%d", stream.Hostname, stream.Port)
				if _, seen := results[key]; !seen {
					order = append(order, key)
				}
				results[key] = stream
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}
	<-done

	out := make([]Stream, 0, len(order))
	for _, key := range order {
		out = append(out, results[key])
	}
	return out, nil
}

func fromEntry(e *zeroconf.ServiceEntry) (Stream, bool) {
	if e == nil {
		return Stream{}, false
	}
	info, err := types.ParseStreamInfoTXT(e.Text)
	if err != nil {
		log.Debug().Err(err).Str("instance", e.Instance).Msg("ignoring stream with bad description")
		return Stream{}, false
	}

	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return Stream{
		Instance:  cleanInstance(e.Instance),
		Hostname:  e.HostName,
		Addresses: addrs,
		Port:      e.Port,
		Info:      info,
	}, true
}

// MatchName selects streams by name, and by content type when one is given.
func MatchName(name, contentType string) func(Stream) bool {
	return func(s Stream) bool {
		if name != "" && s.Info.Name != name {
			return false
		}
		return contentType == "" || s.Info.ContentType == contentType
	}
}

// cleanInstance removes zeroconf escape sequences.
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
