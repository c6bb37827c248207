package transport

import (
	"github.com/go-playground/validator/v10"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/workflow"
	platformvalidator "leadflow_backend/platform/validator"
)

// RegisterValidations adds the lead enum tags used by the request DTOs.
func RegisterValidations(val *platformvalidator.Validator) error {
	rules := map[string]validator.Func{
		"workflow_stage": func(fl validator.FieldLevel) bool {
			_, ok := domain.ParseStage(fl.Field().String())
			return ok
		},
		"disposition": func(fl validator.FieldLevel) bool {
			return workflow.Disposition(fl.Field().String()).Valid()
		},
		"schedule_category": func(fl validator.FieldLevel) bool {
			return domain.ScheduleCategory(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := val.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
