package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierr "github.com/eutrials/triald/api/types/errors"
	apitrials "github.com/eutrials/triald/api/types/trials"
	tdb "github.com/eutrials/triald/pkg/db"
)

// FindTrialsHandler lists trials matching query parameters.
//
// Filters (disease_area, status, country) are exact matches combined
// with AND. Pagination is limit/offset based; limit defaults to
// tdb.DefaultLimit and offset to 0 when not given.
func FindTrialsHandler(dbTrial tdb.TrialInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		query, err := queryParamToListQuery(c)
		if err != nil {
			return apierr.BadRequest(
				`"limit" and "offset" should be non-negative integers`, err,
			)
		}

		page, err := dbTrial.Find(ctx, query)
		if err != nil {
			return storeError(err)
		}

		data := make([]apitrials.Detail, 0, len(page.Trials))
		for _, t := range page.Trials {
			data = append(data, apitrials.ComposeDetail(t))
		}

		return c.JSON(http.StatusOK, apitrials.TrialList{
			Total:  page.Total,
			Limit:  query.Limit,
			Offset: query.Offset,
			Data:   data,
		})
	}
}

func GetTrialHandler(dbTrial tdb.TrialInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := paramToId(c, paramKey)
		if err != nil {
			return apierr.NotFound()
		}

		trial, err := dbTrial.Get(ctx, id)
		if errors.Is(err, tdb.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return storeError(err)
		}

		return c.JSON(http.StatusOK, apitrials.ComposeDetail(trial))
	}
}

func CreateTrialHandler(dbTrial tdb.TrialInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		change, err := readChange(c)
		if err != nil {
			return err
		}

		trial, err := dbTrial.Create(ctx, change.Spec())
		if err != nil {
			return storeError(err)
		}

		return c.JSON(http.StatusOK, apitrials.ComposeDetail(trial))
	}
}

// ReplaceTrialHandler overwrites every field of an existing trial.
//
// Optional fields missing from the payload are reset, not preserved.
func ReplaceTrialHandler(dbTrial tdb.TrialInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := paramToId(c, paramKey)
		if err != nil {
			return apierr.NotFound()
		}

		change, err := readChange(c)
		if err != nil {
			return err
		}

		trial, err := dbTrial.Replace(ctx, id, change.Spec())
		if errors.Is(err, tdb.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return storeError(err)
		}

		return c.JSON(http.StatusOK, apitrials.ComposeDetail(trial))
	}
}

func DeleteTrialHandler(dbTrial tdb.TrialInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := paramToId(c, paramKey)
		if err != nil {
			return apierr.NotFound()
		}

		if err := dbTrial.Delete(ctx, id); errors.Is(err, tdb.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return storeError(err)
		}

		return c.JSON(http.StatusOK, apitrials.DeleteResult{Message: "Trial deleted"})
	}
}

// reads and validates the request body as a trial payload.
//
// Unreadable or invalid payloads come back as 422, keeping them apart
// from malformed query parameters (400).
func readChange(c echo.Context) (apitrials.Change, error) {
	change := apitrials.Change{}
	decoder := json.NewDecoder(c.Request().Body)

	if err := decoder.Decode(&change); err != nil {
		return apitrials.Change{}, apierr.UnprocessableEntity(
			"request body should be a JSON trial record", err,
		)
	}

	if err := change.Validate(); err != nil {
		return apitrials.Change{}, apierr.UnprocessableEntity(err.Error(), err)
	}

	return change, nil
}

func queryParamToListQuery(c echo.Context) (tdb.ListQuery, error) {
	paramMap := c.QueryParams()

	query := tdb.ListQuery{Limit: tdb.DefaultLimit, Offset: 0}

	for name, dest := range map[string]**string{
		"disease_area": &query.DiseaseArea,
		"status":       &query.Status,
		"country":      &query.Country,
	} {
		if !paramMap.Has(name) {
			continue
		}
		value := paramMap.Get(name)
		*dest = &value
	}

	if paramMap.Has("limit") {
		limit, err := nonNegativeInt("limit", paramMap.Get("limit"))
		if err != nil {
			return tdb.ListQuery{}, err
		}
		query.Limit = limit
	}

	if paramMap.Has("offset") {
		offset, err := nonNegativeInt("offset", paramMap.Get("offset"))
		if err != nil {
			return tdb.ListQuery{}, err
		}
		query.Offset = offset
	}

	return query, nil
}

func nonNegativeInt(name string, value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf(`%w: "%s" is not an integer: %s`, errIncorrectQueryParam, name, value)
	}
	if parsed < 0 {
		return 0, fmt.Errorf(`%w: "%s" is negative: %d`, errIncorrectQueryParam, name, parsed)
	}
	return parsed, nil
}

var errIncorrectQueryParam = errors.New("incorrect query parameter")

// A path id which is not an integer can not name any record,
// so it reads as not found rather than bad request.
func paramToId(c echo.Context, paramKey string) (int, error) {
	return strconv.Atoi(c.Param(paramKey))
}

func storeError(err error) *echo.HTTPError {
	if errors.Is(err, tdb.ErrUnavailable) {
		return apierr.ServiceUnavailable("try again later", err)
	}
	return apierr.InternalServerError(err)
}
