package logging

// Field names used in structured log entries.
const (
	FieldBatchID       = "batch_id"
	FieldSource        = "source"
	FieldCategory      = "category"
	FieldRequested     = "requested"
	FieldKeyword       = "keyword"
	FieldTransactionID = "transaction_id"
	FieldOperation     = "operation"
	FieldCount         = "count"
	FieldImported      = "imported"
	FieldDuplicates    = "duplicates"
	FieldRejected      = "rejected"
	FieldRow           = "row"
	FieldPath          = "path"
)
