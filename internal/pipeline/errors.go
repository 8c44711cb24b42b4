package pipeline

import "errors"

// Stage sentinels. Conversion and extraction errors are fatal to a job;
// synthesis and assembly errors only degrade it (transcript without audio).
var (
	ErrConversion = errors.New("document conversion failed")
	ErrExtraction = errors.New("text extraction produced no slides")
	ErrSynthesis  = errors.New("no audio segments generated")
	ErrAssembly   = errors.New("no audio segments to combine")
)
