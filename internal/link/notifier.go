package link

// Notifier is told once per message stored into the inbox.
type Notifier interface {
	NotifyDataReady()
}

type NotifierFunc func()

func (f NotifierFunc) NotifyDataReady() {
	f()
}

// Notifiers fans one notification out in order.
type Notifiers []Notifier

func (ns Notifiers) NotifyDataReady() {
	for _, n := range ns {
		if n != nil {
			n.NotifyDataReady()
		}
	}
}

// ChanNotifier coalesces notifications into a single pending signal.
type ChanNotifier struct {
	C chan struct{}
}

func NewChanNotifier() *ChanNotifier {
	return &ChanNotifier{C: make(chan struct{}, 1)}
}

func (n *ChanNotifier) NotifyDataReady() {
	select {
	case n.C <- struct{}{}:
	default:
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyDataReady() {}
