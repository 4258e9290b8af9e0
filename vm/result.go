package vm

import (
	"fmt"
	"strconv"
)

type (
	// Result is the outcome of one machine step.
	Result int

	// Fault is a fatal run time error with the registers at the faulting instruction.
	Fault struct {
		PC     int
		SP     int
		Result Result
	}
)

const (
	Success Result = iota
	DivideByZero
	BadFetch
	BadDataType
	UnknownInstr
	StackOverflow
	StackUnderflow
	FreeStoreError
	OutOfRange
	Halted

	numResults
)

var resultNames = [numResults]string{
	Success:        "success",
	DivideByZero:   "divideByZero",
	BadFetch:       "badFetch",
	BadDataType:    "badDataType",
	UnknownInstr:   "unknownInstr",
	StackOverflow:  "stackOverflow",
	StackUnderflow: "stackUnderflow",
	FreeStoreError: "freeStoreError",
	OutOfRange:     "outOfRange",
	Halted:         "halted",
}

func (r Result) String() string {
	if r < 0 || r >= numResults {
		return "result(" + strconv.Itoa(int(r)) + ")"
	}

	return resultNames[r]
}

func (r Result) Error() string { return r.String() }

func (f Fault) Error() string {
	return fmt.Sprintf("runtime error @pc %d, sp: %d: %v", f.PC, f.SP, f.Result)
}

func (f Fault) Unwrap() error { return f.Result }
