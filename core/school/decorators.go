package school

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidGrade = errors.New("grade must look like <number>-<letter>")
	ErrRegisterSet  = errors.New("speech register already exists")

	gradeRegex = regexp.MustCompile(`^(\d+)-([A-Za-z]+)$`)
)

// Grade is a parsed "<number>-<letter>" class identifier, e.g. "5-A".
type Grade struct {
	Level  string
	Letter string
}

func (g Grade) String() string { return g.Level + "-" + g.Letter }

// ParseGrade parses "5-A" into {Level: "5", Letter: "A"}. The letter is upper-cased.
func ParseGrade(s string) (Grade, error) {
	m := gradeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Grade{}, errors.Wrapf(ErrInvalidGrade, "parsing grade %q", s)
	}
	return Grade{Level: m[1], Letter: strings.ToUpper(m[2])}, nil
}

// NormalizeGrade trims and upper-cases a grade.
func NormalizeGrade(grade string) string {
	return strings.ToUpper(core.CleanString(grade))
}

// DecorateStudent normalizes a raw student record into the shape views expect.
func DecorateStudent(s Student) Student {
	s.FirstName = core.CleanString(s.FirstName)
	s.LastName = core.CleanString(s.LastName)
	s.Grade = NormalizeGrade(s.Grade)

	if name := core.CleanString(s.Name); name != "" {
		s.Name = name
	} else {
		s.Name = strings.TrimSpace(s.FirstName + " " + s.LastName)
	}

	s.Level, s.Letter = "", ""
	if g, err := ParseGrade(s.Grade); err == nil {
		s.Level, s.Letter = g.Level, g.Letter
	}
	return s
}

func DecorateStudents(students []Student) []Student {
	out := make([]Student, 0, len(students))
	for _, s := range students {
		out = append(out, DecorateStudent(s))
	}
	return out
}
