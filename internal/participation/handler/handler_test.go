package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gestion/internal/participation/handler/mocks"
	"gestion/internal/participation/models"
	dErrors "gestion/pkg/domain-errors"
	"gestion/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/participation-mocks.go -package=mocks Service
type ParticipationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestParticipationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ParticipationHandlerSuite))
}

func (s *ParticipationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = newRouter(s.service)
}

func newRouter(svc Service) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger, nil, WithRequestTimeout(5*time.Second)).Register(r)
	return r
}

var createdAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleParticipation() *models.Participation {
	return &models.Participation{
		ID:          uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-0a1b2c3d4e5f"),
		PersonID:    "P1",
		ProjectCode: "X1",
		Role:        "DEV",
		Percentage:  50,
		CreatedAt:   createdAt,
	}
}

func registerBody() models.CreateParticipationRequest {
	return models.CreateParticipationRequest{PersonID: "P1", ProjectCode: "X1", Role: "DEV", Percentage: 50}
}

func (s *ParticipationHandlerSuite) post(body any) *http.Request {
	return testutil.NewJSONRequest(s.T(), http.MethodPost, BasePath, body)
}

func (s *ParticipationHandlerSuite) TestRegister_Success() {
	s.service.EXPECT().
		Register(gomock.Any(), models.PersonID("P1"), models.ProjectCode("X1"), models.Role("DEV"), 50.0).
		Return(sampleParticipation(), nil)

	rr := testutil.DoRequest(s.router, s.post(registerBody()))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[models.ParticipationResponse](s.T(), rr)
	s.Equal(sampleParticipation().ID, resp.ID)
	s.Equal("P1", resp.PersonID)
	s.Equal("X1", resp.ProjectCode)
	s.Equal("DEV", resp.Role)
	s.Equal(50.0, resp.Percentage)
	s.True(createdAt.Equal(resp.CreatedAt))
	s.Equal("application/json", rr.Header().Get("Content-Type"))
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *ParticipationHandlerSuite) TestRegister_PassesFieldsVerbatim() {
	s.service.EXPECT().
		Register(gomock.Any(), models.PersonID("  p1 "), models.ProjectCode(""), models.Role("dev"), -3.5).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "project  not found"))

	body := models.CreateParticipationRequest{PersonID: "  p1 ", Role: "dev", Percentage: -3.5}
	rr := testutil.DoRequest(s.router, s.post(body))

	testutil.AssertStatusAndMessage(s.T(), rr, http.StatusBadRequest, "project  not found")
}

func (s *ParticipationHandlerSuite) TestRegister_ErrorMapping() {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "not found echoes the message",
			err:     dErrors.New(dErrors.CodeNotFound, "person P9 not found"),
			status:  http.StatusBadRequest,
			message: "person P9 not found",
		},
		{
			name:    "invalid state echoes the message",
			err:     dErrors.New(dErrors.CodeInvalidState, "project X1 is already finished"),
			status:  http.StatusBadRequest,
			message: "project X1 is already finished",
		},
		{
			name:    "conflict uses the fixed message",
			err:     dErrors.New(dErrors.CodeConflict, "person P1 already participates in project X1"),
			status:  http.StatusBadRequest,
			message: ConflictMessage,
		},
		{
			name:    "uncoded errors are internal",
			err:     errors.New("db down"),
			status:  http.StatusInternalServerError,
			message: "an error occurred: db down",
		},
		{
			name:    "internal errors keep their cause",
			err:     dErrors.Wrap(errors.New("timeout"), dErrors.CodeInternal, "failed to load person"),
			status:  http.StatusInternalServerError,
			message: "an error occurred: failed to load person: timeout",
		},
		{
			name:    "unrecognised codes are internal",
			err:     dErrors.New(dErrors.Code("rate_limited"), "bad input"),
			status:  http.StatusInternalServerError,
			message: "an error occurred: bad input",
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().
				Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, tc.err)

			rr := testutil.DoRequest(s.router, s.post(registerBody()))

			testutil.AssertStatusAndMessage(s.T(), rr, tc.status, tc.message)
		})
	}
}

func (s *ParticipationHandlerSuite) TestRegister_RejectsUndecodableBody() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, BasePath, `{"personId":`)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndMessage(s.T(), rr, http.StatusBadRequest, "invalid request body")
}

func (s *ParticipationHandlerSuite) TestRegister_RejectsNonJSONContentType() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, BasePath, "personId=P1")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
}

func (s *ParticipationHandlerSuite) TestRegister_RecoversFromPanics() {
	s.service.EXPECT().
		Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.PersonID, models.ProjectCode, models.Role, float64) (*models.Participation, error) {
			panic("boom")
		})

	rr := testutil.DoRequest(s.router, s.post(registerBody()))

	testutil.AssertStatusAndMessage(s.T(), rr, http.StatusInternalServerError, "internal server error")
}

func (s *ParticipationHandlerSuite) TestGet() {
	p := sampleParticipation()

	s.Run("found", func() {
		s.service.EXPECT().Get(gomock.Any(), p.ID).Return(p, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"/"+p.ID.String(), nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(p.ID, testutil.UnmarshalResponse[models.ParticipationResponse](s.T(), rr).ID)
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"/not-a-uuid", nil))
		testutil.AssertStatusAndMessage(s.T(), rr, http.StatusBadRequest, "invalid participation id")
	})

	s.Run("missing", func() {
		s.service.EXPECT().Get(gomock.Any(), p.ID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "participation "+p.ID.String()+" not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"/"+p.ID.String(), nil))
		testutil.AssertStatusAndMessage(s.T(), rr, http.StatusNotFound, "participation "+p.ID.String()+" not found")
	})

	s.Run("store failure", func() {
		s.service.EXPECT().Get(gomock.Any(), p.ID).Return(nil, errors.New("db down"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"/"+p.ID.String(), nil))
		testutil.AssertStatusAndMessage(s.T(), rr, http.StatusInternalServerError, "an error occurred: db down")
	})
}

func (s *ParticipationHandlerSuite) TestList() {
	s.Run("by project", func() {
		s.service.EXPECT().ListByProject(gomock.Any(), models.ProjectCode("X1")).
			Return([]*models.Participation{sampleParticipation()}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"?projectCode=X1", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[models.ParticipationListResponse](s.T(), rr)
		s.Equal(1, resp.Count)
		s.Equal("P1", resp.Participations[0].PersonID)
	})

	s.Run("by person with no participations", func() {
		s.service.EXPECT().ListByPerson(gomock.Any(), models.PersonID("P2")).Return(nil, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"?personId=P2", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.JSONEq(`{"participations":[],"count":0}`, rr.Body.String())
	})

	s.Run("unknown person", func() {
		s.service.EXPECT().ListByPerson(gomock.Any(), models.PersonID("P9")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "person P9 not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+"?personId=P9", nil))
		testutil.AssertStatusAndMessage(s.T(), rr, http.StatusNotFound, "person P9 not found")
	})

	s.Run("requires exactly one filter", func() {
		for _, query := range []string{"", "?personId=P1&projectCode=X1"} {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, BasePath+query, nil))
			testutil.AssertStatusAndMessage(s.T(), rr, http.StatusBadRequest, "exactly one of personId or projectCode is required")
		}
	})
}
