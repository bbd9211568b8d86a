package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Luismorlan/chirpmux/model"
	"github.com/pkg/errors"
)

// ErrMalformedInput is matched by every *ParseError.
var ErrMalformedInput = errors.New("malformed input")

// ParseError reports the first record that is not "follower_id,followee_id".
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d %q: %s", ErrMalformedInput, e.Line, e.Text, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedInput
}

// EdgeSource produces follow edges one at a time.
type EdgeSource interface {
	Next() bool
	Edge() model.FollowEdge
	// Err returns the error that stopped iteration, nil on a clean end.
	Err() error
}

// CSVEdgeSource streams "follower_id,followee_id" records. Blank and
// whitespace-only lines are not records and are skipped; any other malformed
// line stops the stream with a *ParseError. The header line, when present, is
// discarded unparsed.
type CSVEdgeSource struct {
	input      *bufio.Reader
	reader     *csv.Reader
	skipHeader bool
	// Lines consumed before the csv reader saw its first byte.
	lineOffset int
	edge       model.FollowEdge
	err        error
}

func NewCSVEdgeSource(r io.Reader, hasHeader bool) *CSVEdgeSource {
	input := bufio.NewReader(r)
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true
	return &CSVEdgeSource{input: input, reader: reader, skipHeader: hasHeader}
}

func (s *CSVEdgeSource) Next() bool {
	if s.err != nil {
		return false
	}
	if s.skipHeader {
		s.skipHeader = false
		if _, err := s.input.ReadString('\n'); err != nil {
			if err != io.EOF {
				s.err = errors.Wrap(err, "fail to read header")
			}
			return false
		}
		s.lineOffset = 1
	}

	for {
		record, err := s.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = s.parseError(err)
			return false
		}
		if isBlank(record) {
			continue
		}
		return s.parseRecord(record)
	}
}

func (s *CSVEdgeSource) parseRecord(record []string) bool {
	line, _ := s.reader.FieldPos(0)
	line += s.lineOffset
	if len(record) != 2 {
		s.err = &ParseError{Line: line, Text: strings.Join(record, ","), Reason: fmt.Sprintf("expected 2 fields, got %d", len(record))}
		return false
	}
	follower, err := parseId(record[0])
	if err != nil {
		s.err = &ParseError{Line: line, Text: strings.Join(record, ","), Reason: "invalid follower_id: " + err.Error()}
		return false
	}
	followee, err := parseId(record[1])
	if err != nil {
		s.err = &ParseError{Line: line, Text: strings.Join(record, ","), Reason: "invalid followee_id: " + err.Error()}
		return false
	}
	s.edge = model.FollowEdge{FollowerId: follower, FolloweeId: followee}
	return true
}

// A line holding only spaces or tabs reads as a single field.
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

func (s *CSVEdgeSource) Edge() model.FollowEdge {
	return s.edge
}

func (s *CSVEdgeSource) Err() error {
	return s.err
}

func (s *CSVEdgeSource) parseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.StartLine + s.lineOffset, Reason: csvErr.Err.Error()}
	}
	return errors.Wrap(err, "fail to read edges")
}

func parseId(field string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(field), 10, 64)
}

// SliceEdgeSource serves edges from memory.
type SliceEdgeSource struct {
	edges []model.FollowEdge
	pos   int
}

func NewSliceEdgeSource(edges []model.FollowEdge) *SliceEdgeSource {
	return &SliceEdgeSource{edges: edges}
}

func (s *SliceEdgeSource) Next() bool {
	if s.pos >= len(s.edges) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceEdgeSource) Edge() model.FollowEdge {
	return s.edges[s.pos-1]
}

func (s *SliceEdgeSource) Err() error {
	return nil
}
