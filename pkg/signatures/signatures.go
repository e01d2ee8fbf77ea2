package signatures

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultErrorCodePattern extracts rustc error codes like E0308 from build logs.
const DefaultErrorCodePattern = `^\[INFO\] \[stdout\] error\[(E\d+)\]:`

// Kind tags the matching strategy of a Signature.
type Kind string

const (
	// Literal signatures match a single log line containing every fragment.
	Literal Kind = "literal"
	// Regex signatures run over the whole log, each match is a finding named after the capture.
	Regex Kind = "regex"
)

// Signature is either a list of fragments that must all appear on one line,
// or a regular expression whose capture group names the finding.
type Signature struct {
	Kind Kind

	// Fragments are set for Literal signatures.
	Fragments []string

	// Pattern and Capture are set for Regex signatures.
	Pattern *regexp.Regexp
	Capture int
}

// NewLiteral creates a signature that matches lines containing all fragments, in any order.
func NewLiteral(fragments ...string) (Signature, error) {
	if len(fragments) == 0 {
		return Signature{}, errors.New("a literal signature needs at least one fragment")
	}
	for i, fragment := range fragments {
		if fragment == "" {
			return Signature{}, fmt.Errorf("fragment %d is empty", i)
		}
	}
	return Signature{Kind: Literal, Fragments: fragments}, nil
}

// NewRegex compiles the pattern in multi-line mode and checks that the
// capture group exists.
func NewRegex(pattern string, capture int) (Signature, error) {
	compiled, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("could not compile %q: %w", pattern, err)
	}
	if capture < 1 || capture > compiled.NumSubexp() {
		return Signature{}, fmt.Errorf("pattern %q has no capture group %d", pattern, capture)
	}
	return Signature{Kind: Regex, Pattern: compiled, Capture: capture}, nil
}

func (s Signature) matchesLine(line string) bool {
	for _, fragment := range s.Fragments {
		if !strings.Contains(line, fragment) {
			return false
		}
	}
	return true
}

// Matches counts occurrences per finding name for one log.
type Matches map[string]int

// Names lists the findings that matched at least once.
func (m Matches) Names() sets.Set[string] {
	return sets.KeySet(m)
}

// Set holds the named literal signatures and the error code signature.
type Set struct {
	names    []string
	literals map[string][]Signature
	code     *Signature
}

// NewSet validates the signatures. The code signature may be nil to only match literals.
func NewSet(literals map[string][]Signature, code *Signature) (*Set, error) {
	var errs []error
	for name, signatures := range literals {
		if name == "" {
			errs = append(errs, errors.New("finding names must not be empty"))
		}
		if len(signatures) == 0 {
			errs = append(errs, fmt.Errorf("finding %q has no signatures", name))
		}
		for i, signature := range signatures {
			if signature.Kind != Literal {
				errs = append(errs, fmt.Errorf("finding %q: signature %d is not a literal signature", name, i))
			}
		}
	}
	if code != nil && (code.Kind != Regex || code.Pattern == nil) {
		errs = append(errs, errors.New("the error code signature must be a regex signature"))
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		return nil, err
	}
	return &Set{
		names:    sets.List(sets.KeySet(literals)),
		literals: literals,
		code:     code,
	}, nil
}

// Names lists the configured finding names in lexicographic order.
func (s *Set) Names() []string {
	return s.names
}

// Classify scans a log. Every line matching any signature of a finding
// counts once for that finding, every match of the error code pattern counts
// once for the captured code. An empty result means the log is unclassified.
func (s *Set) Classify(log string) Matches {
	matches := Matches{}
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimSuffix(line, "\r")
		for _, name := range s.names {
			for _, signature := range s.literals[name] {
				if signature.matchesLine(line) {
					matches[name]++
					break
				}
			}
		}
	}

	if s.code != nil {
		for _, submatch := range s.code.Pattern.FindAllStringSubmatchIndex(log, -1) {
			start, end := submatch[2*s.code.Capture], submatch[2*s.code.Capture+1]
			if start < 0 {
				continue
			}
			matches[log[start:end]]++
		}
	}
	return matches
}
