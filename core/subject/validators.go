package subject

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maoni/core"
)

var (
	subjCodeTag   = "subjcode"
	subjCodeText  = "code must look like CS101 (2 to 6 letters followed by 2 to 4 digits)"
	subjCodeRegex = regexp.MustCompile(`^[A-Z]{2,6}[0-9]{2,4}[A-Z]?$`)
)

// InitValidators registers the subject validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjCodeTag, subjCodeValidation)
	core.RegisterCustomTranslation(validate, translator, subjCodeTag, subjCodeText)
}

func subjCodeValidation(fl validator.FieldLevel) bool {
	return subjCodeRegex.MatchString(fl.Field().String())
}
