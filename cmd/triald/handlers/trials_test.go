package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eutrials/triald/api/types/misc/rfcdate"
	apitrials "github.com/eutrials/triald/api/types/trials"
	httptestutil "github.com/eutrials/triald/internal/testutils/http"
	tdb "github.com/eutrials/triald/pkg/db"
	dbmock "github.com/eutrials/triald/pkg/db/mocks"
	"github.com/eutrials/triald/pkg/utils/cmp"
	"github.com/eutrials/triald/pkg/utils/pointer"
	"github.com/eutrials/triald/pkg/utils/try"

	"github.com/eutrials/triald/cmd/triald/handlers"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	return try.To(time.Parse(rfcdate.DateFormat, value)).OrFatal(t)
}

func apiDate(t *testing.T, value string) rfcdate.Date {
	t.Helper()
	return try.To(rfcdate.ParseDate(value)).OrFatal(t)
}

func TestFindTrialsHandler(t *testing.T) {

	t.Run("trials from the store are rendered in the list envelope", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Find = func(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
			return tdb.TrialPage{
				Total: 12,
				Trials: []tdb.Trial{
					{
						Id: 1,
						TrialSpec: tdb.TrialSpec{
							OfficialTitle: "A Phase III Study of Drug X in Advanced NSCLC",
							Acronym:       pointer.Ref("NSCLC-X"),
							DiseaseArea:   pointer.Ref("Oncology"),
							TrialPhase:    pointer.Ref(tdb.PhaseIII),
							Status:        pointer.Ref(tdb.StatusOngoing),
							StartDate:     pointer.Ref(date(t, "2023-04-01")),
							EndDate:       pointer.Ref(date(t, "2026-03-31")),
							Country:       pointer.Ref("Germany"),
							Sponsor:       pointer.Ref("EU Onco Group"),
							Description:   pointer.Ref("Randomized, double blind."),
						},
					},
					{
						Id: 2,
						TrialSpec: tdb.TrialSpec{
							OfficialTitle: "Observational Registry of Biologic Therapy",
						},
					},
				},
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/trials")

		testee := handlers.FindTrialsHandler(mckdbtrial)
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEq(
			mckdbtrial.Calls.Find,
			[]tdb.ListQuery{
				{Limit: tdb.DefaultLimit, Offset: 0},
			},
		) {
			t.Errorf("unmatch query. actual = %+v", mckdbtrial.Calls.Find)
		}

		if respRec.Code != http.StatusOK {
			t.Errorf("unmatch status code:%d, expected:%d", respRec.Code, http.StatusOK)
		}

		actual := apitrials.TrialList{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a list envelope: %v", err)
		}

		expected := apitrials.TrialList{
			Total:  12,
			Limit:  tdb.DefaultLimit,
			Offset: 0,
			Data: []apitrials.Detail{
				{
					Id:            1,
					OfficialTitle: "A Phase III Study of Drug X in Advanced NSCLC",
					Acronym:       pointer.Ref("NSCLC-X"),
					DiseaseArea:   pointer.Ref("Oncology"),
					TrialPhase:    pointer.Ref(tdb.PhaseIII),
					Status:        pointer.Ref(tdb.StatusOngoing),
					StartDate:     pointer.Ref(apiDate(t, "2023-04-01")),
					EndDate:       pointer.Ref(apiDate(t, "2026-03-31")),
					Country:       pointer.Ref("Germany"),
					Sponsor:       pointer.Ref("EU Onco Group"),
					Description:   pointer.Ref("Randomized, double blind."),
				},
				{
					Id:            2,
					OfficialTitle: "Observational Registry of Biologic Therapy",
				},
			},
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch response:%+v, expected:%+v", actual, expected)
		}
	})

	t.Run("filters and pagination in the query reach the store", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Find = func(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
			return tdb.TrialPage{Total: 0, Trials: []tdb.Trial{}}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(
			e, "/api/trials?disease_area=Oncology&status=Ongoing&country=France&limit=5&offset=20",
		)

		testee := handlers.FindTrialsHandler(mckdbtrial)
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEqWith(
			mckdbtrial.Calls.Find,
			[]tdb.ListQuery{
				{
					DiseaseArea: pointer.Ref("Oncology"),
					Status:      pointer.Ref(tdb.StatusOngoing),
					Country:     pointer.Ref("France"),
					Limit:       5,
					Offset:      20,
				},
			},
			func(actual tdb.ListQuery, expected tdb.ListQuery) bool {
				return pointer.SafeDeref(actual.DiseaseArea) == pointer.SafeDeref(expected.DiseaseArea) &&
					pointer.SafeDeref(actual.Status) == pointer.SafeDeref(expected.Status) &&
					pointer.SafeDeref(actual.Country) == pointer.SafeDeref(expected.Country) &&
					actual.Limit == expected.Limit &&
					actual.Offset == expected.Offset
			},
		) {
			t.Errorf("unmatch query. actual = %+v", mckdbtrial.Calls.Find)
		}

		actual := apitrials.TrialList{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a list envelope: %v", err)
		}
		if actual.Total != 0 || len(actual.Data) != 0 {
			t.Errorf("unmatch response:%+v, expected empty page", actual)
		}
		if actual.Limit != 5 || actual.Offset != 20 {
			t.Errorf(
				"unmatch limit/offset:%d/%d, expected:5/20",
				actual.Limit, actual.Offset,
			)
		}
	})

	for name, target := range map[string]string{
		"a non-integer limit":  "/api/trials?limit=ten",
		"a negative limit":     "/api/trials?limit=-1",
		"a non-integer offset": "/api/trials?offset=later",
		"a negative offset":    "/api/trials?offset=-3",
	} {
		t.Run("when the query has "+name+", status code should be 400", func(t *testing.T) {
			mckdbtrial := dbmock.NewTrialInterface()

			e := echo.New()
			c, _ := httptestutil.Get(e, target)

			testee := handlers.FindTrialsHandler(mckdbtrial)
			err := testee(c)

			var echoErr *echo.HTTPError
			if !errors.As(err, &echoErr) {
				t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
			}
			if echoErr.Code != http.StatusBadRequest {
				t.Errorf("unmatch error code:%d, expected:%d", echoErr.Code, http.StatusBadRequest)
			}
			if mckdbtrial.Calls.Find.Times() != 0 {
				t.Error("the store should not be queried")
			}
		})
	}

	t.Run("when the store is unreachable, status code should be 503", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Find = func(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
			return tdb.TrialPage{}, unavailable()
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/trials")

		testee := handlers.FindTrialsHandler(mckdbtrial)
		err := testee(c)

		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusServiceUnavailable {
			t.Errorf("unmatch error code:%d, expected:%d", echoErr.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("when the store fails otherwise, status code should be 500", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Find = func(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
			return tdb.TrialPage{}, errors.New("fake error")
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/trials")

		testee := handlers.FindTrialsHandler(mckdbtrial)
		err := testee(c)

		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusInternalServerError {
			t.Errorf("unmatch error code:%d, expected:%d", echoErr.Code, http.StatusInternalServerError)
		}
	})
}

func TestGetTrialHandler(t *testing.T) {

	t.Run("a stored trial is rendered as JSON", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Get = func(ctx context.Context, id int) (tdb.Trial, error) {
			return tdb.Trial{
				Id: 42,
				TrialSpec: tdb.TrialSpec{
					OfficialTitle: "Pilot Study of Remote Cardiac Monitoring",
					DiseaseArea:   pointer.Ref("Cardiology"),
					Status:        pointer.Ref(tdb.StatusPlanned),
					StartDate:     pointer.Ref(date(t, "2025-01-15")),
				},
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/trials/42")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("42")

		testee := handlers.GetTrialHandler(mckdbtrial, "trialId")
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEq(
			mckdbtrial.Calls.Get,
			[]struct{ Id int }{{Id: 42}},
		) {
			t.Errorf("unmatch id. actual = %+v", mckdbtrial.Calls.Get)
		}

		actual := apitrials.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a trial record: %v", err)
		}
		expected := apitrials.Detail{
			Id:            42,
			OfficialTitle: "Pilot Study of Remote Cardiac Monitoring",
			DiseaseArea:   pointer.Ref("Cardiology"),
			Status:        pointer.Ref(tdb.StatusPlanned),
			StartDate:     pointer.Ref(apiDate(t, "2025-01-15")),
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch response:%+v, expected:%+v", actual, expected)
		}
	})

	t.Run("when no trial has the id, status code should be 404", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Get = func(ctx context.Context, id int) (tdb.Trial, error) {
			return tdb.Trial{}, tdb.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/trials/9999")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("9999")

		testee := handlers.GetTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusNotFound)
	})

	t.Run("a non-integer id names no record, status code should be 404", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/trials/not-a-number")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("not-a-number")

		testee := handlers.GetTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusNotFound)
		if mckdbtrial.Calls.Get.Times() != 0 {
			t.Error("the store should not be queried")
		}
	})

	t.Run("when the store is unreachable, status code should be 503", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Get = func(ctx context.Context, id int) (tdb.Trial, error) {
			return tdb.Trial{}, unavailable()
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/trials/1")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("1")

		testee := handlers.GetTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusServiceUnavailable)
	})
}

func TestCreateTrialHandler(t *testing.T) {

	t.Run("a valid payload is stored and echoed back with its id", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Create = func(ctx context.Context, spec tdb.TrialSpec) (tdb.Trial, error) {
			return tdb.Trial{Id: 7, TrialSpec: spec}, nil
		}

		payload := map[string]any{
			"official_title": "Comparative Study of Insulin Regimens",
			"disease_area":   "Endocrinology",
			"trial_phase":    "Phase II",
			"status":         "Planned",
			"start_date":     "2025-09-01",
			"end_date":       "2027-08-31",
			"country":        "Spain",
		}
		body := try.To(json.Marshal(payload)).OrFatal(t)

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/trials", bytes.NewReader(body),
			httptestutil.ContentType("application/json"),
		)

		testee := handlers.CreateTrialHandler(mckdbtrial)
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		expectedSpec := tdb.TrialSpec{
			OfficialTitle: "Comparative Study of Insulin Regimens",
			DiseaseArea:   pointer.Ref("Endocrinology"),
			TrialPhase:    pointer.Ref(tdb.PhaseII),
			Status:        pointer.Ref(tdb.StatusPlanned),
			StartDate:     pointer.Ref(date(t, "2025-09-01")),
			EndDate:       pointer.Ref(date(t, "2027-08-31")),
			Country:       pointer.Ref("Spain"),
		}
		if !cmp.SliceEqWith(
			mckdbtrial.Calls.Create,
			[]tdb.TrialSpec{expectedSpec},
			tdb.TrialSpec.Equal,
		) {
			t.Errorf("unmatch spec. actual = %+v", mckdbtrial.Calls.Create)
		}

		if respRec.Code != http.StatusOK {
			t.Errorf("unmatch status code:%d, expected:%d", respRec.Code, http.StatusOK)
		}

		actual := apitrials.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a trial record: %v", err)
		}
		if actual.Id != 7 {
			t.Errorf("unmatch id:%d, expected:7", actual.Id)
		}
		if actual.OfficialTitle != "Comparative Study of Insulin Regimens" {
			t.Errorf("unmatch official_title:%s", actual.OfficialTitle)
		}
	})

	for name, body := range map[string][]byte{
		"a body which is not JSON":        []byte("it is not a json"),
		"a payload without its title":     []byte(`{"disease_area": "Oncology"}`),
		"an end date before a start date": []byte(`{"official_title": "t", "start_date": "2025-06-01", "end_date": "2025-05-01"}`),
	} {
		t.Run("when the request has "+name+", status code should be 422", func(t *testing.T) {
			mckdbtrial := dbmock.NewTrialInterface()

			e := echo.New()
			c, _ := httptestutil.Post(
				e, "/api/trials", bytes.NewReader(body),
				httptestutil.ContentType("application/json"),
			)

			testee := handlers.CreateTrialHandler(mckdbtrial)
			err := testee(c)

			assertErrorCode(t, err, http.StatusUnprocessableEntity)
			if mckdbtrial.Calls.Create.Times() != 0 {
				t.Error("nothing should be stored")
			}
		})
	}

	t.Run("when the store is unreachable, status code should be 503", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Create = func(ctx context.Context, spec tdb.TrialSpec) (tdb.Trial, error) {
			return tdb.Trial{}, unavailable()
		}

		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/trials",
			bytes.NewReader([]byte(`{"official_title": "t"}`)),
			httptestutil.ContentType("application/json"),
		)

		testee := handlers.CreateTrialHandler(mckdbtrial)
		err := testee(c)

		assertErrorCode(t, err, http.StatusServiceUnavailable)
	})
}

func TestReplaceTrialHandler(t *testing.T) {

	t.Run("the payload overwrites the record and the result is echoed back", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Replace = func(ctx context.Context, id int, spec tdb.TrialSpec) (tdb.Trial, error) {
			return tdb.Trial{Id: id, TrialSpec: spec}, nil
		}

		body := []byte(`{"official_title": "Retitled Study", "status": "Completed"}`)

		e := echo.New()
		c, respRec := httptestutil.Put(
			e, "/api/trials/3", bytes.NewReader(body),
			httptestutil.ContentType("application/json"),
		)
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("3")

		testee := handlers.ReplaceTrialHandler(mckdbtrial, "trialId")
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if mckdbtrial.Calls.Replace.Times() != 1 {
			t.Fatalf("unmatch call count:%d, expected:1", mckdbtrial.Calls.Replace.Times())
		}
		call := mckdbtrial.Calls.Replace[0]
		if call.Id != 3 {
			t.Errorf("unmatch id:%d, expected:3", call.Id)
		}
		expectedSpec := tdb.TrialSpec{
			OfficialTitle: "Retitled Study",
			Status:        pointer.Ref(tdb.StatusCompleted),
		}
		if !call.Spec.Equal(expectedSpec) {
			t.Errorf("unmatch spec:%+v, expected:%+v", call.Spec, expectedSpec)
		}

		actual := apitrials.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a trial record: %v", err)
		}
		expected := apitrials.Detail{
			Id:            3,
			OfficialTitle: "Retitled Study",
			Status:        pointer.Ref(tdb.StatusCompleted),
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch response:%+v, expected:%+v", actual, expected)
		}
	})

	t.Run("when no trial has the id, status code should be 404", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Replace = func(ctx context.Context, id int, spec tdb.TrialSpec) (tdb.Trial, error) {
			return tdb.Trial{}, tdb.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/trials/9999",
			bytes.NewReader([]byte(`{"official_title": "t"}`)),
			httptestutil.ContentType("application/json"),
		)
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("9999")

		testee := handlers.ReplaceTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusNotFound)
	})

	t.Run("when the payload is malformed, status code should be 422", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()

		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/trials/3",
			bytes.NewReader([]byte("it is not a json")),
			httptestutil.ContentType("application/json"),
		)
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("3")

		testee := handlers.ReplaceTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusUnprocessableEntity)
		if mckdbtrial.Calls.Replace.Times() != 0 {
			t.Error("nothing should be stored")
		}
	})
}

func TestDeleteTrialHandler(t *testing.T) {

	t.Run("a deleted trial is acknowledged", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Delete = func(ctx context.Context, id int) error {
			return nil
		}

		e := echo.New()
		c, respRec := httptestutil.Delete(e, "/api/trials/5")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("5")

		testee := handlers.DeleteTrialHandler(mckdbtrial, "trialId")
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEq(
			mckdbtrial.Calls.Delete,
			[]struct{ Id int }{{Id: 5}},
		) {
			t.Errorf("unmatch id. actual = %+v", mckdbtrial.Calls.Delete)
		}

		if respRec.Code != http.StatusOK {
			t.Errorf("unmatch status code:%d, expected:%d", respRec.Code, http.StatusOK)
		}

		actual := apitrials.DeleteResult{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a delete result: %v", err)
		}
		if actual.Message != "Trial deleted" {
			t.Errorf(`unmatch message:%s, expected:"Trial deleted"`, actual.Message)
		}
	})

	t.Run("when no trial has the id, status code should be 404", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Delete = func(ctx context.Context, id int) error {
			return tdb.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Delete(e, "/api/trials/9999")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("9999")

		testee := handlers.DeleteTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusNotFound)
	})

	t.Run("when the store fails, status code should be 500", func(t *testing.T) {
		mckdbtrial := dbmock.NewTrialInterface()
		mckdbtrial.Impl.Delete = func(ctx context.Context, id int) error {
			return errors.New("fake error")
		}

		e := echo.New()
		c, _ := httptestutil.Delete(e, "/api/trials/5")
		c.SetPath("/api/trials/:trialId")
		c.SetParamNames("trialId")
		c.SetParamValues("5")

		testee := handlers.DeleteTrialHandler(mckdbtrial, "trialId")
		err := testee(c)

		assertErrorCode(t, err, http.StatusInternalServerError)
	})
}

func assertErrorCode(t *testing.T, err error, code int) {
	t.Helper()

	var echoErr *echo.HTTPError
	if !errors.As(err, &echoErr) {
		t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
	}
	if echoErr.Code != code {
		t.Errorf("unmatch error code:%d, expected:%d", echoErr.Code, code)
	}
}

func unavailable() error {
	return errors.Join(tdb.ErrUnavailable, errors.New("fake connection refused"))
}
