package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/afs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/5dlabs/toolman-sub001/config"
	"github.com/5dlabs/toolman-sub001/session"
	"github.com/5dlabs/toolman-sub001/stdio"
	"github.com/5dlabs/toolman-sub001/upstream"
)

const maxIdleConnsPerHost = 32

// Service runs the stdio adapter wired to the upstream client.
type Service struct {
	options *ServeOptions
	logger  *zap.Logger
	client  *upstream.Client
	adapter *stdio.Adapter
}

// Serve bridges in to the upstream endpoint until in is exhausted.
func (s *Service) Serve(ctx context.Context, in io.Reader) error {
	group, ctx := errgroup.WithContext(ctx)
	served := make(chan struct{})
	group.Go(func() error {
		defer close(served)
		return s.adapter.Serve(ctx, in)
	})
	if s.options.Metrics != "" {
		server := &http.Server{Addr: s.options.Metrics, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			s.logger.Info("serving metrics", zap.String("addr", s.options.Metrics))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			select {
			case <-served:
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	err := group.Wait()
	if pending := s.client.Pending(); pending > 0 {
		s.logger.Warn("upstream requests still pending at exit", zap.Int("count", pending))
	}
	return err
}

// newHTTPClient keeps enough idle connections for concurrent requests to one upstream host.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	return &http.Client{Transport: transport}
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// New resolves the session and builds the forwarding pipeline writing to out.
// An invalid registry in the working directory is fatal.
func New(ctx context.Context, options *ServeOptions, out io.Writer, logger *zap.Logger) (*Service, error) {
	resolver := &session.Resolver{DetectWorkspace: options.DetectWorkspace, ProjectRoot: options.ProjectRoot}
	sess := session.New(options.URL, resolver.Resolve(options.WorkingDir))
	logger = logger.With(zap.String("session", sess.SessionID))

	fs := afs.New()
	store, err := config.Load(ctx, sess.WorkingDirectory, config.WithLogger(logger), config.WithFS(fs))
	if err != nil {
		return nil, err
	}
	logger.Info("loaded registry", zap.String("path", store.Path()), zap.Bool("found", store.Found()), zap.Int("servers", len(store.Servers())))

	writer := stdio.NewWriter(out)
	client := upstream.New(sess,
		upstream.WithListener(writer.WriteMessage),
		upstream.WithTimeout(options.Timeout),
		upstream.WithHTTPClient(newHTTPClient()),
		upstream.WithLogger(logger))
	logger.Info("starting bridge",
		zap.String("url", sess.URL),
		zap.Stringer("transport", client.Kind()),
		zap.String("workingDirectory", sess.WorkingDirectory))

	adapterOptions := []stdio.Option{
		stdio.WithLogger(logger),
		stdio.WithDrain(options.drain()),
		stdio.WithToolsAnnouncement(options.AnnounceTools),
		stdio.WithToolDefaults(options.ToolDefaults),
	}
	if store.Found() && !options.NoSessionConfig {
		servers, err := store.ServersDocument()
		if err != nil {
			return nil, err
		}
		adapterOptions = append(adapterOptions, stdio.WithSessionConfig(sess.Config(servers, options.Timeout)))
	}
	if options.Filter {
		filter, err := stdio.LoadFilter(ctx, fs, sess.WorkingDirectory)
		if err != nil {
			return nil, err
		}
		if filter != nil {
			logger.Info("filtering tools", zap.Strings("enabled", filter.EnabledTools))
			adapterOptions = append(adapterOptions, stdio.WithFilter(filter))
		}
	}
	return &Service{
		options: options,
		logger:  logger,
		client:  client,
		adapter: stdio.New(client, writer, adapterOptions...),
	}, nil
}
