// Package cluster holds the client-side cluster-selection state that hangs
// off an authenticated session: which clusters the dashboard knows about,
// which one is active, and the live resource-update stream. The session
// layer resets all of it on logout so no cluster data outlives the
// credentials it was fetched with.
package cluster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kubedeck/sessionkit/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultUpdateBufferSize = 256

// Cluster describes one managed Kubernetes cluster.
type Cluster struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	APIServer string `json:"apiServer"`
}

// ResourceUpdate is one event from the live update stream.
type ResourceUpdate struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Namespace string    `json:"namespace,omitempty"`
	Name      string    `json:"name"`
	Verb      string    `json:"verb"`
	At        time.Time `json:"at"`
}

// persistedState is the blob written under credentials.ClusterStateKey.
// The stream connection and its buffer are never persisted.
type persistedState struct {
	Clusters      []Cluster `json:"clusters"`
	ActiveCluster string    `json:"activeCluster"`
}

// Store is the single holder of cluster-selection state.
type Store struct {
	creds      credentials.Repo
	log        zerolog.Logger
	bufferSize int

	lock     sync.Mutex
	clusters []Cluster
	active   string
	stream   *StreamConn
	pending  []ResourceUpdate
}

type StoreOption func(*Store)

// WithLogger sets the store logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithUpdateBufferSize bounds the pending-update buffer. Oldest events are
// dropped once the bound is reached.
func WithUpdateBufferSize(size int) StoreOption {
	return func(s *Store) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

func NewStore(creds credentials.Repo, options ...StoreOption) (*Store, error) {
	if creds == nil {
		return nil, errors.New("[cluster.NewStore] credentials repo is required")
	}

	s := &Store{
		creds:      creds,
		log:        zerolog.Nop(),
		bufferSize: defaultUpdateBufferSize,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Load restores the persisted cluster selection. A missing blob leaves the
// store at its empty defaults.
func (s *Store) Load() error {
	raw, err := s.creds.Get(credentials.ClusterStateKey)
	if errors.Is(err, credentials.NotFoundErr) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Store.Load] Get")
	}

	var state persistedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return errors.Wrap(err, "[Store.Load] Unmarshal")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.clusters = state.Clusters
	s.active = state.ActiveCluster
	return nil
}

// SetClusters replaces the known cluster list and persists it. An active
// cluster that is no longer in the list is cleared.
func (s *Store) SetClusters(list []Cluster) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.clusters = append([]Cluster(nil), list...)
	if s.active != "" && !s.hasClusterLocked(s.active) {
		s.active = ""
	}
	return s.persistLocked()
}

// SetActive selects the active cluster by ID and persists the choice.
func (s *Store) SetActive(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if id != "" && !s.hasClusterLocked(id) {
		return errors.Wrapf(UnknownClusterErr, "[Store.SetActive] %q", id)
	}
	s.active = id
	return s.persistLocked()
}

// Clusters returns a copy of the known cluster list.
func (s *Store) Clusters() []Cluster {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Cluster(nil), s.clusters...)
}

// Active returns the active cluster ID, or an empty string.
func (s *Store) Active() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.active
}

// Connect dials the resource-update stream for the active cluster and
// starts buffering events. An existing stream is closed first.
func (s *Store) Connect(ctx context.Context, streamURL, bearerToken string) error {
	conn, err := dialStream(ctx, streamURL, bearerToken, s.log)
	if err != nil {
		return errors.Wrap(err, "[Store.Connect] dialStream")
	}

	s.lock.Lock()
	previous := s.stream
	s.stream = conn
	s.lock.Unlock()

	if previous != nil {
		previous.Close()
	}

	go conn.run(s.appendUpdate)
	return nil
}

// Connected reports whether a live update stream is open.
func (s *Store) Connected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stream != nil && !s.stream.Closed()
}

// DrainUpdates returns the buffered updates and empties the buffer.
func (s *Store) DrainUpdates() []ResourceUpdate {
	s.lock.Lock()
	defer s.lock.Unlock()

	pending := s.pending
	s.pending = nil
	return pending
}

// Reset tears the store down to its empty defaults: closed stream, no
// buffered events, no clusters, no active selection, and no persisted blob.
// Calling it on an already-reset store is a no-op.
func (s *Store) Reset() error {
	s.lock.Lock()
	stream := s.stream
	s.stream = nil
	s.pending = nil
	s.clusters = nil
	s.active = ""
	s.lock.Unlock()

	if stream != nil {
		stream.Close()
	}

	if err := s.creds.Delete(credentials.ClusterStateKey); err != nil {
		return errors.Wrap(err, "[Store.Reset] Delete")
	}
	return nil
}

func (s *Store) appendUpdate(update ResourceUpdate) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.pending) >= s.bufferSize {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, update)
}

func (s *Store) hasClusterLocked(id string) bool {
	for _, c := range s.clusters {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) persistLocked() error {
	raw, err := json.Marshal(persistedState{Clusters: s.clusters, ActiveCluster: s.active})
	if err != nil {
		return errors.Wrap(err, "[Store.persist] Marshal")
	}
	if err := s.creds.Set(credentials.ClusterStateKey, string(raw)); err != nil {
		return errors.Wrap(err, "[Store.persist] Set")
	}
	return nil
}
