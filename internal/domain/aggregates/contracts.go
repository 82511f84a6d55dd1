package aggregates

// Operation names for knowledge aggregate writes. They label spans, errors
// and the aggregate_* metrics, so renaming one breaks dashboards.
const (
	OpBindOrMerge           = "knowledge.bind_or_merge"
	OpAssignSlug            = "knowledge.assign_slug"
	OpRecordResolutionError = "knowledge.record_resolution_error"
)

// Operations lists every aggregate write in a stable order.
func Operations() []string {
	return []string{OpBindOrMerge, OpAssignSlug, OpRecordResolutionError}
}
