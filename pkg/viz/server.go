package viz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

type Producer interface {
	Name() string
	GetImage() *ImageContainer
	AddPlotOption(opt PlotOptions)
}

// StatusFunc returns a JSON-encodable snapshot for the /status route.
type StatusFunc func() interface{}

// Server renders producers on an interval and serves the images. Buckets are
// only rendered while someone has viewed them in the last viewedTimeout.
type Server struct {
	images          map[string]map[string]*ImageContainer
	mu              sync.RWMutex
	srv             *http.Server
	producerBuckets map[string]map[string]Producer
	updateInterval  time.Duration
	enabled         bool
	lastViewed      map[string]time.Time
	status          StatusFunc
}

const viewedTimeout = time.Second

func NewServer(port int, updateInterval time.Duration) *Server {
	s := &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		lastViewed:      make(map[string]time.Time),
		srv:             &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval:  updateInterval,
		enabled:         true,
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Enable(enable bool) {
	s.mu.Lock()
	s.enabled = enable
	s.mu.Unlock()
}

func (s *Server) SetStatusFunc(fn StatusFunc) {
	s.mu.Lock()
	s.status = fn
	s.mu.Unlock()
}

func (s *Server) Register(bucket string, p Producer) {
	s.mu.Lock()
	producers, ok := s.producerBuckets[bucket]
	if !ok {
		producers = make(map[string]Producer)
		s.producerBuckets[bucket] = producers
	}
	producers[p.Name()] = p
	s.mu.Unlock()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.refreshLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(false)
		}
	}
}

// refresh re-renders every recently viewed bucket, or all of them when force
// is set.
func (s *Server) refresh(force bool) {
	s.mu.RLock()
	if !s.enabled {
		s.mu.RUnlock()
		return
	}
	var due []string
	for bucket := range s.producerBuckets {
		if force || time.Since(s.lastViewed[bucket]) < viewedTimeout {
			due = append(due, bucket)
		}
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, bucket := range due {
		s.mu.RLock()
		producers := make([]Producer, 0, len(s.producerBuckets[bucket]))
		for _, p := range s.producerBuckets[bucket] {
			producers = append(producers, p)
		}
		s.mu.RUnlock()

		for _, producer := range producers {
			wg.Add(1)
			go func(bucket string, p Producer) {
				defer wg.Done()
				img := p.GetImage()
				if img == nil {
					return
				}
				s.mu.Lock()
				mb, ok := s.images[bucket]
				if !ok {
					mb = make(map[string]*ImageContainer)
					s.images[bucket] = mb
				}
				mb[p.Name()] = img
				s.mu.Unlock()
			}(bucket, producer)
		}
	}
	wg.Wait()
}

func (s *Server) sortedBuckets() []string {
	keys := make([]string, 0, len(s.producerBuckets))
	for key := range s.producerBuckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		keys := s.sortedBuckets()
		s.mu.RUnlock()
		if len(keys) == 0 {
			http.Redirect(w, r, "/status", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/view/"+url.PathEscape(keys[0]), http.StatusFound)
	})

	handler.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		status := s.status
		s.mu.RUnlock()
		if status == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	handler.GET("/view/:bucket", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucket := params.ByName("bucket")

		s.mu.Lock()
		producers, ok := s.producerBuckets[bucket]
		if !ok {
			s.mu.Unlock()
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.lastViewed[bucket] = time.Now()
		names := make([]string, 0, len(producers))
		for name := range producers {
			names = append(names, name)
		}
		buckets := s.sortedBuckets()
		s.mu.Unlock()
		sort.Strings(names)

		w.Header().Add("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Biostream Viz</title></head>`)
		fmt.Fprintf(w, `
		<script type="text/javascript">
			var toggleRefresh = true;
			function toggleOn() {
				toggleRefresh = !toggleRefresh;
			}

			function changeBucket() {
				var val = document.getElementById('bucketSelector').value;
				window.location.href = '/view/' + val;
			}
			window.onload = function() {
				for (var i = 0; i < %d; i++) {
					var img = document.getElementById('graph-' + i);
					setInterval(function(image) {
						if (toggleRefresh) {
							image.src = image.src.split("?")[0] + "?" + new Date().getTime();
						}
					}, %d, img);
				}
			}
		</script>`, len(names), s.updateInterval.Milliseconds())
		fmt.Fprint(w, `<body style='background-color: black'>`)

		fmt.Fprint(w, `<select id="bucketSelector" onchange="changeBucket()">`)
		for _, name := range buckets {
			selected := ""
			if name == bucket {
				selected = " selected"
			}
			fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, url.PathEscape(name), selected, name)
		}
		fmt.Fprint(w, `</select>`)
		fmt.Fprint(w, `<button onclick="toggleOn()">Refresh?</button>`)

		fmt.Fprint(w, `<div style="display: flex; flex-direction: row; flex-wrap: wrap">`)
		for idx, name := range names {
			fmt.Fprintf(w, `<div><img id="graph-%d" src="/img/%s/%s?%d" /></div>`,
				idx, url.PathEscape(bucket), url.PathEscape(name), time.Now().UnixMicro())
		}
		fmt.Fprint(w, `</div></body></html>`)
	})

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucketName := params.ByName("bucket")
		imgName := params.ByName("img")

		s.mu.Lock()
		s.lastViewed[bucketName] = time.Now()
		img, ok := s.images[bucketName][imgName]
		s.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Add("Content-Type", "image/png")
		w.Write(img.data)
	})

	return handler
}
