package internal

// QueueSet holds one ActionQueue per phase, in declared order.
type QueueSet struct {
	names  []string
	queues []*ActionQueue
	index  map[string]int

	running bool
}

func NewQueueSet(phases []string, opts QueueOptions) *QueueSet {
	s := &QueueSet{
		names:  append([]string(nil), phases...),
		queues: make([]*ActionQueue, len(phases)),
		index:  make(map[string]int, len(phases)),
	}

	for i, name := range phases {
		s.queues[i] = NewActionQueue(name, opts)
		s.index[name] = i
	}

	return s
}

func (s *QueueSet) Phases() []string { return s.names }

// Queue returns the queue of the given phase, the first phase if name is empty.
func (s *QueueSet) Queue(name string) *ActionQueue {
	if name == "" {
		return s.queues[0]
	}

	i, ok := s.index[name]
	if !ok {
		panic(fatal(CodeUnknownQueue, "", "no phase named %q in %v", name, s.names))
	}

	return s.queues[i]
}

func (s *QueueSet) Push(queue string, recv Receiver, op string, args ...any) {
	s.Queue(queue).Push(recv, op, args...)
}

func (s *QueueSet) PushOnce(queue string, recv Receiver, op string, args ...any) {
	s.Queue(queue).PushOnce(recv, op, args...)
}

func (s *QueueSet) Len() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

func (s *QueueSet) Empty() bool { return s.Len() == 0 }

// Go drains the phases from start (or the first) to the last.
// After each phase, earlier phases that received work are drained again
// before moving forward.
func (s *QueueSet) Go(start string) int {
	if s.running {
		return 0
	}
	s.running = true
	defer func() { s.running = false }()

	i := 0
	if start != "" {
		i = s.index[s.Queue(start).Name()]
	}

	ran := 0
	for i < len(s.queues) {
		ran += s.queues[i].Go(true)

		next := i + 1
		for j := 0; j <= i; j++ {
			if !s.queues[j].Empty() {
				next = j
				break
			}
		}

		i = next
	}

	return ran
}
