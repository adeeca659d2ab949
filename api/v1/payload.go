package v1

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Field names of the Struct payloads.
//
//	ListJobs response:  {session: string, jobs: [Job...]}
//	ResumeJob response: Job
//	SignalJob request:  {reference: string, signal: string}
//	SignalJob response: Job
//	Job:                {id: number, pid: number, state: string, command: string}
const (
	FieldSession   = "session"
	FieldJobs      = "jobs"
	FieldID        = "id"
	FieldPID       = "pid"
	FieldState     = "state"
	FieldCommand   = "command"
	FieldReference = "reference"
	FieldSignal    = "signal"
)

var ErrInvalidPayload = errors.New("invalid payload")

// Job is the wire view of a job table entry.
type Job struct {
	ID      int
	PID     int
	State   string
	Command string
}

func (j Job) fields() map[string]any {
	return map[string]any{
		FieldID:      j.ID,
		FieldPID:     j.PID,
		FieldState:   j.State,
		FieldCommand: j.Command,
	}
}

func NewJob(j Job) (*structpb.Struct, error) {
	return structpb.NewStruct(j.fields())
}

func ParseJob(s *structpb.Struct) (Job, error) {
	fields := s.GetFields()

	id, err := numberField(fields, FieldID)
	if err != nil {
		return Job{}, err
	}

	pid, err := numberField(fields, FieldPID)
	if err != nil {
		return Job{}, err
	}

	state, err := stringField(fields, FieldState)
	if err != nil {
		return Job{}, err
	}

	command, err := stringField(fields, FieldCommand)
	if err != nil {
		return Job{}, err
	}

	return Job{ID: id, PID: pid, State: state, Command: command}, nil
}

func NewJobList(session string, jobs []Job) (*structpb.Struct, error) {
	list := make([]any, 0, len(jobs))
	for _, j := range jobs {
		list = append(list, j.fields())
	}

	return structpb.NewStruct(map[string]any{
		FieldSession: session,
		FieldJobs:    list,
	})
}

func ParseJobList(s *structpb.Struct) (string, []Job, error) {
	fields := s.GetFields()

	session, err := stringField(fields, FieldSession)
	if err != nil {
		return "", nil, err
	}

	v, ok := fields[FieldJobs]
	if !ok {
		return "", nil, fmt.Errorf("%w: missing %s", ErrInvalidPayload, FieldJobs)
	}

	list := v.GetListValue()
	if list == nil {
		return "", nil, fmt.Errorf("%w: %s is not a list", ErrInvalidPayload, FieldJobs)
	}

	jobs := make([]Job, 0, len(list.GetValues()))

	for i, item := range list.GetValues() {
		s := item.GetStructValue()
		if s == nil {
			return "", nil, fmt.Errorf("%w: %s[%d] is not an object", ErrInvalidPayload, FieldJobs, i)
		}

		job, err := ParseJob(s)
		if err != nil {
			return "", nil, fmt.Errorf("%s[%d]: %w", FieldJobs, i, err)
		}

		jobs = append(jobs, job)
	}

	return session, jobs, nil
}

func NewSignalRequest(reference, signal string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldReference: reference,
		FieldSignal:    signal,
	})
}

func ParseSignalRequest(s *structpb.Struct) (reference, signal string, err error) {
	fields := s.GetFields()

	if reference, err = stringField(fields, FieldReference); err != nil {
		return "", "", err
	}

	if signal, err = stringField(fields, FieldSignal); err != nil {
		return "", "", err
	}

	return reference, signal, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidPayload, name)
	}

	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidPayload, name)
	}

	return sv.StringValue, nil
}

func numberField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidPayload, name)
	}

	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidPayload, name)
	}

	n := int(nv.NumberValue)
	if float64(n) != nv.NumberValue {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrInvalidPayload, name)
	}

	return n, nil
}
