package config

import "sync"

// Runtime holds the settings administrators may change while the process
// runs. It is shared by reference and mutated only through its setters.
type Runtime struct {
	mu      sync.RWMutex
	groupID int64
}

// NewRuntime seeds the runtime settings from the static configuration.
func NewRuntime(groupID int64) *Runtime {
	return &Runtime{groupID: groupID}
}

// GroupID returns the external group users must belong to. Zero means no
// group requirement is configured.
func (r *Runtime) GroupID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groupID
}

func (r *Runtime) SetGroupID(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groupID = id
}
