package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Gateway,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"studentreg/internal/catalog"
	"studentreg/internal/registration/form"
	"studentreg/internal/registration/gateway"
	"studentreg/internal/registration/metrics"
	"studentreg/internal/registration/models"
	"studentreg/internal/registration/service/mocks"
	"studentreg/internal/registration/store"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/audit"
	auditmemory "studentreg/pkg/platform/audit/store/memory"
	"studentreg/pkg/platform/audit/publisher"
	"studentreg/pkg/requestcontext"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

var exampleValues = []struct {
	field models.Field
	value string
}{
	{models.FieldFullName, "Asha Rao"},
	{models.FieldEmail, "asha@example.com"},
	{models.FieldPhone, "9876543210"},
	{models.FieldCollegeName, "City College"},
	{models.FieldDegree, "BSc"},
	{models.FieldStream, "Physics"},
	{models.FieldYearOfStudy, "First Year"},
	{models.FieldBirthDate, "2002-05-10"},
	{models.FieldPassword, "secret1"},
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	gateway    *mocks.MockGateway
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testNow)
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.store = store.NewInMemory(store.WithMemoryClock(func() time.Time { return testNow }))
	s.auditStore = auditmemory.NewInMemoryStore(0)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())

	svc, err := New(s.store, s.gateway, catalog.Default(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) filledForm() id.FormID {
	snap, err := s.service.Start(s.ctx)
	s.Require().NoError(err)
	for _, v := range exampleValues {
		_, err := s.service.ChangeField(s.ctx, snap.State.ID, v.field, v.value)
		s.Require().NoError(err)
	}
	return snap.State.ID
}

func (s *ServiceSuite) auditActions(formID id.FormID) []audit.Action {
	events, err := s.auditStore.ListBySubject(context.Background(), formID.String())
	s.Require().NoError(err)
	out := make([]audit.Action, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) TestNew_RequiresCollaborators() {
	_, err := New(nil, s.gateway, nil)
	s.Error(err)
	_, err = New(s.store, nil, nil)
	s.Error(err)
}

func (s *ServiceSuite) TestStart() {
	snap, err := s.service.Start(s.ctx)
	s.Require().NoError(err)

	s.Equal(models.StatusEditing, snap.State.Status)
	s.Equal(testNow, snap.State.CreatedAt)
	s.False(snap.Options.Renderable())
	s.Equal([]audit.Action{audit.ActionRegistrationStarted}, s.auditActions(snap.State.ID))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.FormsStarted))
}

func (s *ServiceSuite) TestChangeField() {
	s.Run("degree change clears dependents", func() {
		formID := s.filledForm()
		snap, err := s.service.ChangeField(s.ctx, formID, models.FieldDegree, "MBBS")
		s.Require().NoError(err)

		s.Equal("MBBS", snap.State.Values.Degree)
		s.Empty(snap.State.Values.Stream)
		s.Empty(snap.State.Values.YearOfStudy)
		s.Contains(snap.Options.Years, "Fifth Year")
	})

	s.Run("stream not offered is rejected and nothing changes", func() {
		formID := s.filledForm()
		_, err := s.service.ChangeField(s.ctx, formID, models.FieldStream, "Surgery")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		got, err := s.service.Get(s.ctx, formID)
		s.Require().NoError(err)
		s.Equal("Physics", got.State.Values.Stream)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DependentRejections.WithLabelValues("stream")))
	})

	s.Run("unknown form", func() {
		_, err := s.service.ChangeField(s.ctx, id.NewFormID(), models.FieldEmail, "a@b.co")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestBlurField_RevealsError() {
	snap, err := s.service.Start(s.ctx)
	s.Require().NoError(err)

	blurred, err := s.service.BlurField(s.ctx, snap.State.ID, models.FieldEmail)
	s.Require().NoError(err)
	s.Equal("Email is required", blurred.State.VisibleErrors()[models.FieldEmail])
	s.NotContains(blurred.State.VisibleErrors(), models.FieldPhone)
}

func (s *ServiceSuite) TestSubmit_InvalidNeverReachesGateway() {
	snap, err := s.service.Start(s.ctx)
	s.Require().NoError(err)
	s.gateway.EXPECT().SubmitRegistration(gomock.Any(), gomock.Any()).Times(0)

	got, err := s.service.Submit(s.ctx, snap.State.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(models.StatusEditing, got.State.Status)
	s.True(got.State.SubmitAttempted)
	s.Len(got.State.VisibleErrors(), len(models.Fields))

	stored, err := s.service.Get(s.ctx, snap.State.ID)
	s.Require().NoError(err)
	s.True(stored.State.SubmitAttempted, "touched-all state is persisted")
}

func (s *ServiceSuite) TestSubmit_Accepted() {
	formID := s.filledForm()
	s.gateway.EXPECT().
		SubmitRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f models.Form) error {
			s.Equal("asha@example.com", f.Email)
			s.Equal("secret1", f.Password)
			return nil
		})

	got, err := s.service.Submit(s.ctx, formID)
	s.Require().NoError(err)
	s.Equal(models.StatusSucceeded, got.State.Status)
	s.Empty(got.State.Values.Password, "password is not retained after success")
	s.Equal("Asha Rao", got.State.Values.FullName)

	_, err = s.service.ChangeField(s.ctx, formID, models.FieldFullName, "Someone Else")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Submit(s.ctx, formID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	s.Equal([]audit.Action{
		audit.ActionRegistrationStarted,
		audit.ActionRegistrationSubmitted,
		audit.ActionRegistrationAccepted,
	}, s.auditActions(formID))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted)))
}

func (s *ServiceSuite) TestSubmit_RejectedKeepsValues() {
	formID := s.filledForm()
	s.gateway.EXPECT().
		SubmitRegistration(gomock.Any(), gomock.Any()).
		Return(&gateway.RejectedError{Reason: "Email already registered", StatusCode: 409})

	got, err := s.service.Submit(s.ctx, formID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadGateway))
	s.Equal("Email already registered", dErrors.MessageOf(err))
	s.Equal(models.StatusEditing, got.State.Status)
	s.Equal("Email already registered", got.State.Rejection)
	s.Equal("secret1", got.State.Values.Password)
	s.Equal("Physics", got.State.Values.Stream)
}

func (s *ServiceSuite) TestSubmit_UntypedGatewayErrorUsesDefaultReason() {
	formID := s.filledForm()
	s.gateway.EXPECT().SubmitRegistration(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	got, err := s.service.Submit(s.ctx, formID)
	s.Require().Error(err)
	s.Equal(gateway.DefaultReason, dErrors.MessageOf(err))
	s.Equal(gateway.DefaultReason, got.State.Rejection)
}

func (s *ServiceSuite) TestSubmit_EventsDuringFlight() {
	formID := s.filledForm()
	s.gateway.EXPECT().
		SubmitRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.Form) error {
			_, err := s.service.Submit(ctx, formID)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "second submit refused while in flight")

			_, err = s.service.ChangeField(ctx, formID, models.FieldCollegeName, "State University")
			s.NoError(err, "edits stay open while submitting")
			return &gateway.RejectedError{Reason: "Try again later"}
		})

	got, err := s.service.Submit(s.ctx, formID)
	s.Require().Error(err)
	s.Equal("State University", got.State.Values.CollegeName)
	s.Equal(models.StatusEditing, got.State.Status)
}

func (s *ServiceSuite) TestSubmit_GatewayCallOutlivesCaller() {
	formID := s.filledForm()
	ctx, cancel := context.WithCancel(s.ctx)
	s.gateway.EXPECT().
		SubmitRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(callCtx context.Context, _ models.Form) error {
			cancel()
			select {
			case <-callCtx.Done():
				return callCtx.Err()
			case <-time.After(50 * time.Millisecond):
				return nil
			}
		})

	got, err := s.service.Submit(ctx, formID)
	s.Require().NoError(err)
	s.Equal(models.StatusSucceeded, got.State.Status)
	s.Empty(got.State.Rejection)
}

func (s *ServiceSuite) TestSubmit_HTTPGatewayCompletesAfterCallerHangsUp() {
	formID := s.filledForm()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var created atomic.Bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		time.Sleep(100 * time.Millisecond)
		created.Store(true)
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	svc, err := New(s.store, gateway.NewHTTP(backend.URL), catalog.Default(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)

	got, err := svc.Submit(ctx, formID)
	s.Require().NoError(err)
	s.True(created.Load())
	s.Equal(models.StatusSucceeded, got.State.Status)
	s.Empty(got.State.Rejection)

	_, err = svc.Submit(s.ctx, formID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "accepted form cannot be resubmitted")
}

func (s *ServiceSuite) TestDiscard() {
	snap, err := s.service.Start(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Discard(s.ctx, snap.State.ID))
	_, err = s.service.Get(s.ctx, snap.State.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Discard(s.ctx, snap.State.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestStoreFailureIsInternal() {
	st := mocks.NewMockStore(s.ctrl)
	svc, err := New(st, s.gateway, nil)
	s.Require().NoError(err)

	st.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("redis: connection refused"))
	_, err = svc.Start(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(form.State{}, store.ErrNotFound)
	_, err = svc.Get(s.ctx, id.NewFormID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCatalog() {
	s.Len(s.service.Catalog(), 12)

	d, err := s.service.DegreeOptions("BCom")
	s.Require().NoError(err)
	s.Equal("B.Com", d.Label)

	_, err = s.service.DegreeOptions("PhD")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
