package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

const (
	errTestMissing Code = "missing"
	errTestOther   Code = "other"
)

type ErrorsSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsSuite))
}

func (s *ErrorsSuite) TestIsMatchesCodeThroughWrapping() {
	err := Wrap(errTestOther, New(errTestMissing, "room r1"), "lookup")

	s.True(Is(err, errTestOther))
	s.True(Is(err, errTestMissing))
	s.Contains(err.Error(), "room r1")
}

func (s *ErrorsSuite) TestWrapNilReturnsNil() {
	s.NoError(Wrap(errTestMissing, nil, "nothing"))
	s.NoError(Wrapf(errTestMissing, nil, "nothing %d", 1))
}

func (s *ErrorsSuite) TestCodeOf() {
	code, ok := CodeOf(Newf(errTestMissing, "room %s", "r1"))
	s.True(ok)
	s.Equal(errTestMissing, code)

	code, ok = CodeOf(errTestOther)
	s.True(ok)
	s.Equal(errTestOther, code)

	_, ok = CodeOf(stderrors.New("plain"))
	s.False(ok)
}

func (s *ErrorsSuite) TestAs() {
	err := Wrap(errTestOther, stderrors.New("boom"), "ctx")
	e, ok := As[*Error](err)
	s.Require().True(ok)
	s.Equal(errTestOther, (*e).Code)
}
