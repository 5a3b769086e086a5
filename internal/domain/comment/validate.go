package comment

import (
	"errors"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// input holds sanitized request fields.
type input struct {
	text       string
	author     string
	breakpoint string
	image      string
}

var errPosition = errors.New("is required")

func validateCreate(req types.CreateCommentRequest) (input, error) {
	in := input{
		text:       utils.PlainText(req.Text),
		author:     utils.PlainText(req.Author),
		breakpoint: utils.PlainText(req.Breakpoint),
	}
	if in.breakpoint == "" {
		in.breakpoint = types.DefaultBreakpoint
	}

	err := validation.Errors{
		"url":        validation.Validate(req.URL, validation.Required, utils.HTTPURL),
		"x":          position(req.X),
		"y":          position(req.Y),
		"text":       validation.Validate(in.text, validation.Required.Error("Text is required"), validation.RuneLength(0, utils.MaxCommentLength)),
		"author":     validation.Validate(in.author, validation.RuneLength(0, utils.MaxAuthorLength)),
		"breakpoint": validation.Validate(in.breakpoint, validation.RuneLength(1, utils.MaxBreakpointLength)),
		"projectId":  validation.Validate(req.ProjectID, validation.RuneLength(0, utils.MaxIDLength), validation.Match(utils.SafeIDPattern)),
	}.Filter()
	return in, utils.AsValidationError(err)
}

func validateUpdate(req types.UpdateCommentRequest) (string, error) {
	if req.Text == nil {
		return "", nil
	}
	text := utils.PlainText(*req.Text)
	err := validation.Errors{
		"text": validation.Validate(text, validation.Required.Error("Text is required"), validation.RuneLength(0, utils.MaxCommentLength)),
	}.Filter()
	return text, utils.AsValidationError(err)
}

func validateReply(req types.ReplyRequest) (input, error) {
	in := input{
		text:   utils.PlainText(req.Text),
		author: utils.PlainText(req.Author),
		image:  req.Image,
	}
	err := validation.Errors{
		"text":   validation.Validate(in.text, validation.Required.Error("Text is required"), validation.RuneLength(0, utils.MaxReplyLength)),
		"author": validation.Validate(in.author, validation.RuneLength(0, utils.MaxAuthorLength)),
		"image":  validation.Validate(in.image, validation.RuneLength(0, utils.MaxURLLength), utils.NoNullBytes),
	}.Filter()
	return in, utils.AsValidationError(err)
}

// position requires a coordinate; out-of-range values are clamped later.
func position(v *float64) error {
	if v == nil {
		return errPosition
	}
	return nil
}
