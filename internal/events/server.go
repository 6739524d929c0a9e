// internal/events/server.go
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/tasks"
)

// ContainerLister is the Docker-side view the status endpoint needs.
type ContainerLister interface {
	List(ctx context.Context, all bool) ([]docker.ContainerRow, error)
}

// Server is the local status bridge: a loopback HTTP server exposing the
// event stream and a status snapshot to out-of-process front ends.
type Server struct {
	hub        *Hub
	lister     ContainerLister
	supervisor *tasks.Supervisor
	addr       string
	httpServer *http.Server
}

// ServerOptions configures the status bridge.
type ServerOptions struct {
	// Addr is the listen address; empty means constants.DefaultBridgeAddr.
	Addr       string
	Lister     ContainerLister
	Supervisor *tasks.Supervisor
}

// NewServer builds the bridge. The lister and supervisor back /api/status.
func NewServer(opts ServerOptions) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = constants.DefaultBridgeAddr
	}
	return &Server{
		hub:        NewHub(),
		lister:     opts.Lister,
		supervisor: opts.Supervisor,
		addr:       addr,
	}
}

// Hub returns the event hub so callers can publish.
func (s *Server) Hub() *Hub {
	return s.hub
}

// WireSupervisor publishes task lifecycle events for every task the
// supervisor runs.
func (s *Server) WireSupervisor() {
	if s.supervisor == nil {
		return
	}
	s.supervisor.SetHooks(
		func(t *tasks.Task) {
			s.hub.Publish(Event{
				Type:      EventTaskStarted,
				Container: t.Container,
				Payload:   map[string]string{"id": t.ID, "op": t.Op},
			})
		},
		func(t *tasks.Task, err error) {
			payload := map[string]string{"id": t.ID, "op": t.Op}
			if err != nil {
				payload["error"] = err.Error()
			}
			s.hub.Publish(Event{
				Type:      EventTaskFinished,
				Container: t.Container,
				Payload:   payload,
			})
		},
	)
}

// Run serves until ctx is canceled, then shuts down gracefully. The caller
// drains its supervisor before canceling so in-flight tasks still reach
// connected clients.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.hub.Start()
	logging.Info("Status bridge listening at http://%s", s.addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Stop()
		return errors.Wrap(err, "status bridge")
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutCtx)
	s.hub.Stop()
	return errors.Wrap(err, "status bridge shutdown")
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

type containerStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	ID      string `json:"id"`
	Running bool   `json:"running"`
}

type statusResponse struct {
	Containers []containerStatus `json:"containers"`
	Tasks      []tasks.TaskInfo  `json:"tasks"`
	Clients    int               `json:"clients"`
	Time       time.Time         `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultCommandTimeout)
	defer cancel()

	resp := statusResponse{
		Containers: []containerStatus{},
		Clients:    s.hub.ClientCount(),
		Time:       time.Now(),
	}
	if s.supervisor != nil {
		resp.Tasks = s.supervisor.List()
	}
	if s.lister != nil {
		rows, err := s.lister.List(ctx, true)
		if err != nil {
			logging.Warning("Status container listing failed: %v", err)
		} else {
			for _, row := range rows {
				resp.Containers = append(resp.Containers, containerStatus{
					Name:    row.Name,
					Status:  row.Status,
					ID:      row.ID,
					Running: row.Running,
				})
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Debug("Status response write failed: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
