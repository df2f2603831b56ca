package db

type TrialDatabase interface {
	Trials() TrialInterface
	Close() error
}
