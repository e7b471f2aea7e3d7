package driver

import (
	"github.com/cqlshard/driver/cluster"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/internal/log"
	"github.com/cqlshard/driver/metrics"
)

// Session is the top-level driver handle: one Cluster (node set + ring), one
// Router over it, and the ambient metrics/logging sinks threaded through
// every Keyspace it opens.
type Session struct {
	cluster *cluster.Cluster
	router  *Router
	prep    *prepcache.Cache
	metrics *metrics.Registry
	logger  *log.Logger
}

// NewSession wraps an already-built Cluster (callers populate it with
// AddNode/BuildRing before or after constructing the Session; Route calls
// read the ring on every dispatch so a later BuildRing takes effect
// immediately). m and lg may be nil.
func NewSession(cl *cluster.Cluster, m *metrics.Registry, lg *log.Logger) *Session {
	return &Session{
		cluster: cl,
		router:  NewRouter(cl),
		prep:    cl.PrepCache(),
		metrics: m,
		logger:  lg,
	}
}

// Keyspace returns a handle for name. It does not validate that the
// keyspace exists server-side; USE is implicit in every statement's
// table-qualified name, per the non-goal dropping session-level USE state.
func (s *Session) Keyspace(name string) *Keyspace {
	return &Keyspace{session: s, name: name, DefaultRetries: 3}
}

// Cluster returns the underlying Cluster, for callers that need to call
// AddNode/BuildRing/StartPeriodicRebuild directly.
func (s *Session) Cluster() *cluster.Cluster { return s.cluster }
