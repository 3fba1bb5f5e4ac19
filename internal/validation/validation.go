package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/imtaco/watch-party/internal/errors"
)

const ErrEngine errors.Code = "validator_engine"

// New returns a standalone validator carrying every custom tag of this package.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range tags {
		if err := Register(v, tag, fn); err != nil {
			panic(err)
		}
	}
	for tag, alias := range aliases {
		RegisterAlias(v, tag, alias)
	}
	return v
}

func MustRegisterGin(tag string, fn validator.Func) {
	if err := RegisterGin(tag, fn); err != nil {
		panic(err)
	}
}

func MustRegisterGinAlias(tag string, alias string) {
	if err := RegisterGinAlias(tag, alias); err != nil {
		panic(err)
	}
}

func Register(v *validator.Validate, tag string, fn validator.Func) error {
	return v.RegisterValidation(tag, fn)
}

func RegisterAlias(v *validator.Validate, tag string, alias string) {
	v.RegisterAlias(tag, alias)
}

func ginEngine() (*validator.Validate, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v, nil
	}
	return nil, errors.New(ErrEngine, "gin validator engine is not *validator.Validate")
}

func RegisterGin(tag string, fn validator.Func) error {
	v, err := ginEngine()
	if err != nil {
		return err
	}
	return Register(v, tag, fn)
}

func RegisterGinAlias(tag string, alias string) error {
	v, err := ginEngine()
	if err != nil {
		return err
	}
	RegisterAlias(v, tag, alias)
	return nil
}
