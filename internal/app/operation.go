package app

// Operation tracks a CLI operation that may mutate the record store.
// Operations are created in memory with ID=0. Only store-mutating commands
// persist them (giving them an auto-increment ID from the store).
type Operation struct {
	ID        int64
	Operation string
	Root      string
	Status    string // "success" or "error"
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation, root string) *Operation {
	return &Operation{
		Operation: operation,
		Root:      root,
		Status:    "success",
	}
}

// Persisted returns true if this operation has been saved to the store.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}
