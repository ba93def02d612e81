package types

type WriterType string

const (
	StdoutType WriterType = "stdout"
	BatchType  WriterType = "batch"
)

// WriterConfig routes records either to the live stdout writer or to the
// batch file writer, carrying the writer specific settings along.
type WriterConfig struct {
	Type         WriterType `json:"type"`
	WriterConfig any        `json:"writer,omitempty"`
}
