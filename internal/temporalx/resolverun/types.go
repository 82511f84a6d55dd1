package resolverun

const (
	WorkflowName    = "knowledge_resolve"
	ActivityResolve = "knowledge_resolve_activity"
)

type Input struct {
	KnowledgeID string `json:"knowledge_id"`
}

type Output struct {
	KnowledgeID string `json:"knowledge_id"`
	Outcome     string `json:"outcome"`
	BookID      string `json:"book_id,omitempty"`
	MergedInto  string `json:"merged_into,omitempty"`
}
