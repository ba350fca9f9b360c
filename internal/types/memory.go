package types

// MemoryType classifies a long-term user memory. Only preference and
// constraint memories influence detour reranking.
type MemoryType string

const (
	MemoryPreference MemoryType = "preference"
	MemoryProfile    MemoryType = "profile"
	MemoryConstraint MemoryType = "constraint"
	MemoryGoal       MemoryType = "goal"
	MemoryEpisode    MemoryType = "episode"
)

// MemorySnippet is the narrow shape the reranking step consumes from the
// memory-retrieval collaborator.
type MemorySnippet struct {
	Text string     `json:"text"`
	Type MemoryType `json:"type"`
}
