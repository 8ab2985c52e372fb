package filter

/*
Here the Env used in the watch-feed entry filters is defined.
Once this struct is fixed, it should not be changed, otherwise filters stored
by clients may not compile any more (f.e. if properties are renamed etc.)

Note the env deliberately exposes no contact identifier, a filter can only see
what an outward-facing listing would show anyway.
*/

type Room struct {
	Code string
	Name string
}

type Entry struct {
	DisplayName   string
	Topic         string
	Position      int
	NotifyConsent bool
	WaitSeconds   int64
}

type Env struct {
	Room
	Entry
	QueueLength int
}
