package history

// Outcome tags a best-effort read.
type Outcome int

const (
	OK Outcome = iota
	Empty
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Empty:
		return "empty"
	}
	return "failed"
}

// Fetched is the result of a best-effort read: Ok(data) | Empty | Failed(err).
// The presentation layer picks what to render for each tag. Data may be set
// for Empty when the upstream sent a payload without records.
type Fetched[T any] struct {
	Outcome Outcome
	Data    T
	Err     error
}

func ok[T any](data T) Fetched[T] {
	return Fetched[T]{Outcome: OK, Data: data}
}

func empty[T any](data T) Fetched[T] {
	return Fetched[T]{Outcome: Empty, Data: data}
}

func failed[T any](err error) Fetched[T] {
	return Fetched[T]{Outcome: Failed, Err: err}
}
