package invalid

type Job struct {
	ID   int64 `dawn:"key"`
	Done chan struct{}
}
