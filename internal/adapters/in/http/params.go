package http

import (
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

func pathUUID(c echo.Context, name string) (kernel.UUID, error) {
	var raw string
	if err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &raw, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause(name, err)
	}

	id, err := kernel.UUIDFromString(raw)
	if err != nil {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	return id, nil
}

func pathString(c echo.Context, name string) (string, error) {
	var raw string
	if err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &raw, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return "", errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	return raw, nil
}

// queryStatuses reads ?status=a&status=b; absent means no filter.
func queryStatuses(c echo.Context) ([]order.Status, error) {
	var raw []string
	if err := runtime.BindQueryParameter("form", true, false, "status", c.QueryParams(), &raw); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("status", err)
	}

	statuses := make([]order.Status, 0, len(raw))
	for _, s := range raw {
		status, err := order.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
