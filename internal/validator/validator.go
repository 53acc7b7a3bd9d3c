package validator

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	enlocale "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// Setup registers the English translator on gin's underlying validator so
// binding failures produce readable field messages.
func Setup() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}

	en := enlocale.New()
	uni := ut.New(en, en)
	trans, _ = uni.GetTranslator("en")

	return entrans.RegisterDefaultTranslations(v, trans)
}

// Bind binds and validates the JSON body into obj. On validation failure it
// returns a single human-readable message joining all field errors.
func Bind(c *gin.Context, obj any) (string, bool) {
	if err := c.ShouldBindJSON(obj); err != nil {
		return Translate(err), false
	}
	return "", true
}

// Translate converts a binding error into a joined, human-readable message.
func Translate(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && trans != nil {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return strings.Join(msgs, "; ")
	}
	return "Invalid request body"
}
