package model

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Status is what the rendering layer reads for the current selection
// it's always derived from the cache state, never stored
type Status struct {
	Language     Language            `json:"language"`
	State        State               `json:"state"`
	Error        string              `json:"error,omitempty"`
	Repositories []RepositorySummary `json:"repositories,omitempty"`
}

func (s Status) IsLoading() bool {
	return s.State == StateLoading
}
