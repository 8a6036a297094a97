package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/ocr"
	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/intake/wizard"
	"applicant-intake/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bookingID = "BK-1"
	origin    = "https://assistant.example.com"
	email     = "asha@example.com"
)

type fakeRecords struct {
	mu          sync.Mutex
	rows        []models.StoredApplicant
	fetchErr    error
	email       string
	emailErr    error
	emailCalls  int
	createdByID map[string]string
	failCreate  map[string]error
}

func (f *fakeRecords) FetchApplicants(ctx context.Context, id string) ([]models.StoredApplicant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, f.fetchErr
}

func (f *fakeRecords) FetchBookingEmail(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailCalls++
	return f.email, f.emailErr
}

// CreateApplicant stores the created applicant as a fetchable row so a reload
// after the save sees it.
func (f *fakeRecords) CreateApplicant(ctx context.Context, id string, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first, _ := payload[models.FieldFirstName].(string)
	if err := f.failCreate[first]; err != nil {
		return "", err
	}
	persistedID := "rec-" + first
	isPrimary, _ := payload[models.FieldIsPrimary].(bool)
	last, _ := payload[models.FieldLastName].(string)
	f.rows = append(f.rows, models.StoredApplicant{
		IsPrimary: isPrimary,
		Applicant: models.StoredPerson{ID: persistedID, Name: first + " " + last},
	})
	return persistedID, nil
}

func (f *fakeRecords) AttachDocuments(ctx context.Context, id, applicantID string, documentIDs []string, tag string) error {
	return nil
}

type fakeOCR struct {
	calls  int
	fields ingest.OCRFields
	err    error
}

func (f *fakeOCR) Extract(ctx context.Context, doc ocr.Document) (ingest.OCRFields, error) {
	f.calls++
	return f.fields, f.err
}

type fakeEvents struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakeEvents) PublishMessage(ctx context.Context, name, key string, vars map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, name+":"+key)
	return f.err
}

type fixture struct {
	events  *fakeEvents
	svc     *Service
	mr      *miniredis.Miniredis
	store   *session.Store
	records *fakeRecords
	ocr     *fakeOCR
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewTestLogger(t)
	records := &fakeRecords{email: email}
	fo := &fakeOCR{}
	fe := &fakeEvents{}
	store := session.NewStore(client, "intake", time.Hour)

	svc := New(Deps{
		Sessions: store,
		Records:  records,
		OCR:      fo,
		Saver:    persist.NewOrchestrator(records, persist.NewRedisGuard(client, "intake", time.Minute), log),
		Channel:  ingest.NewChannel([]string{origin}, time.Minute, ingest.NewMemoryDeduper(), log),
		Emails:   NewEmailCache(client, "intake", time.Minute, log),
		Events:   fe,
		Logger:   log,
	})
	return &fixture{events: fe, svc: svc, mr: mr, store: store, records: records, ocr: fo}
}

// verified loads the booking and passes the email gate.
func (f *fixture) verified(t *testing.T) session.Session {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Load(ctx, bookingID)
	require.NoError(t, err)
	sess, err := f.svc.VerifyEmail(ctx, bookingID, email)
	require.NoError(t, err)
	require.True(t, sess.Wizard.Verified)
	return sess
}

func (f *fixture) name(t *testing.T, applicantID, first, last string) {
	t.Helper()
	_, err := f.svc.UpdateApplicant(context.Background(), bookingID, applicantID, map[string]string{
		models.FieldFirstName: first,
		models.FieldLastName:  last,
	})
	require.NoError(t, err)
}

func primaryID(t *testing.T, s session.Session) string {
	t.Helper()
	p, ok := s.Roster.Primary()
	require.True(t, ok)
	return p.ID
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("hydrates stored rows", func(t *testing.T) {
		f := newFixture(t)
		f.records.rows = []models.StoredApplicant{
			{IsPrimary: true, Applicant: models.StoredPerson{ID: "rec-1", Name: "Asha Rao"}},
			{Applicant: models.StoredPerson{ID: "rec-2", Name: "Vikram Rao"}},
		}
		sess, err := f.svc.Load(ctx, bookingID)
		require.NoError(t, err)
		assert.Equal(t, 2, sess.Roster.Len())
		assert.Equal(t, map[string]string{"applicant-1": "rec-1", "applicant-2": "rec-2"}, sess.PersistedIDs)
		assert.True(t, f.mr.Exists("intake:session:BK-1"))
	})

	t.Run("fetch failure seeds the roster", func(t *testing.T) {
		f := newFixture(t)
		f.records.fetchErr = errors.New("records down")
		sess, err := f.svc.Load(ctx, bookingID)
		require.NoError(t, err)
		assert.Equal(t, 1, sess.Roster.Len())
		_, ok := sess.Roster.Primary()
		assert.True(t, ok)
	})

	t.Run("stored rows precede early assistant applicants", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.IngestEnvelope(ctx, ingest.Message{
			Origin:    origin,
			MessageID: "m-early",
			Body:      envelope(t, `[{"generalDetails":{"firstName":"Meera"}}]`),
		})
		require.NoError(t, err)
		f.records.rows = []models.StoredApplicant{
			{IsPrimary: true, Applicant: models.StoredPerson{ID: "rec-1", Name: "Asha Rao"}},
		}

		sess, err := f.svc.Load(ctx, bookingID)
		require.NoError(t, err)
		applicants := sess.Roster.Applicants()
		require.Len(t, applicants, 2)
		assert.Equal(t, "Asha", applicants[0].FirstName)
		assert.True(t, applicants[0].IsPrimary)
		assert.Equal(t, "Meera", applicants[1].FirstName)
		assert.Equal(t, map[string]string{"applicant-1": "rec-1"}, sess.PersistedIDs)
	})

	t.Run("reload keeps wizard state", func(t *testing.T) {
		f := newFixture(t)
		f.verified(t)
		sess, err := f.svc.Load(ctx, bookingID)
		require.NoError(t, err)
		assert.True(t, sess.Wizard.Verified)
		assert.Equal(t, wizard.PhaseForm, sess.Wizard.Phase)
	})

	t.Run("missing booking id", func(t *testing.T) {
		_, err := newFixture(t).svc.Load(ctx, "")
		assert.ErrorIs(t, err, ErrMissingBookingID)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, bookingID)
	require.NoError(t, err)

	sess, err := f.svc.VerifyEmail(ctx, bookingID, "someone@example.com")
	require.NoError(t, err)
	assert.True(t, sess.Wizard.VerifyError)
	assert.False(t, sess.Wizard.Verified)

	sess, err = f.svc.VerifyEmail(ctx, bookingID, " asha@example .com ")
	require.NoError(t, err)
	assert.False(t, sess.Wizard.VerifyError)
	assert.True(t, sess.Wizard.Verified)
	assert.Equal(t, email, sess.BookingEmail)

	assert.Equal(t, 1, f.records.emailCalls, "booking email is cached")
	assert.True(t, f.mr.Exists("intake:booking-email:BK-1"))
}

func TestVerifyEmail_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.records.emailErr = errors.New("boom")
	_, err := f.svc.VerifyEmail(context.Background(), bookingID, email)
	assert.ErrorIs(t, err, ErrEmailUnavailable)
	assert.False(t, f.mr.Exists("intake:booking-email:BK-1"))
}

func TestApplicantEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)
	primary := primaryID(t, sess)

	sess, coID, err := f.svc.AddApplicant(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, coID, sess.Roster.Open())
	assert.Equal(t, 2, sess.Roster.Len())

	_, _, err = f.svc.RecordUpload(ctx, bookingID, ingest.UploadEvent{ApplicantID: coID, Category: "pan", DocumentID: "doc-1"}, "")
	require.NoError(t, err)

	t.Run("updates are all or nothing", func(t *testing.T) {
		_, err := f.svc.UpdateApplicant(ctx, bookingID, coID, map[string]string{
			models.FieldFirstName: "Bala",
			"shoeSize":            "9",
		})
		assert.ErrorIs(t, err, models.ErrUnknownField)

		got, err := f.svc.Get(ctx, bookingID)
		require.NoError(t, err)
		a, _ := got.Roster.Find(coID)
		assert.Empty(t, a.FirstName)
	})

	t.Run("unknown applicant", func(t *testing.T) {
		_, err := f.svc.UpdateApplicant(ctx, bookingID, "applicant-99", map[string]string{models.FieldFirstName: "X"})
		assert.ErrorIs(t, err, roster.ErrApplicantNotFound)
	})

	t.Run("primary cannot be removed", func(t *testing.T) {
		_, err := f.svc.RemoveApplicant(ctx, bookingID, primary)
		assert.ErrorIs(t, err, roster.ErrPrimaryRemoval)
	})

	t.Run("remove drops uploads", func(t *testing.T) {
		sess, err := f.svc.RemoveApplicant(ctx, bookingID, coID)
		require.NoError(t, err)
		assert.Equal(t, 1, sess.Roster.Len())
		assert.True(t, sess.Files.For(coID).Empty())
	})
}

func TestUpdateAddress_FormOrder(t *testing.T) {
	f := newFixture(t)
	f.verified(t)

	sess, err := f.svc.UpdateAddress(context.Background(), bookingID, map[string]string{
		address.SameAsPermanent: "true",
		address.CorrCity:        "Pune",
		address.CorrPincode:     "411001",
	})
	require.NoError(t, err)
	assert.True(t, sess.Address.SameAsPermanent)
	assert.Equal(t, "Pune", sess.Address.Permanent.City)
	assert.Equal(t, "411001", sess.Address.Permanent.Pincode)

	_, err = f.svc.UpdateAddress(context.Background(), bookingID, map[string]string{"corrPlanet": "Mars"})
	assert.ErrorIs(t, err, address.ErrUnknownField)
}

func TestNextStep(t *testing.T) {
	ctx := context.Background()

	t.Run("requires verification", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Load(ctx, bookingID)
		require.NoError(t, err)
		_, err = f.svc.NextStep(ctx, bookingID)
		assert.ErrorIs(t, err, ErrNotVerified)
	})

	t.Run("refuses and focuses the invalid applicant", func(t *testing.T) {
		f := newFixture(t)
		sess := f.verified(t)
		f.name(t, primaryID(t, sess), "Asha", "Rao")
		_, coID, err := f.svc.AddApplicant(ctx, bookingID)
		require.NoError(t, err)
		_, err = f.svc.OpenApplicant(ctx, bookingID, primaryID(t, sess))
		require.NoError(t, err)

		res, err := f.svc.NextStep(ctx, bookingID)
		require.NoError(t, err)
		assert.False(t, res.Moved)
		assert.Equal(t, []string{"First Name is required", "Last Name is required"}, res.Messages)
		assert.Equal(t, coID, res.Session.Roster.Open())
		assert.Equal(t, 1, res.Session.Wizard.CurrentStep)

		f.name(t, coID, "Bala", "Iyer")
		res, err = f.svc.NextStep(ctx, bookingID)
		require.NoError(t, err)
		assert.True(t, res.Moved)
		assert.Equal(t, 2, res.Session.Wizard.CurrentStep)

		back, err := f.svc.PreviousStep(ctx, bookingID)
		require.NoError(t, err)
		assert.Equal(t, 1, back.Wizard.CurrentStep)
	})
}

func TestExtractDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)
	primary := primaryID(t, sess)

	t.Run("unsupported category never calls OCR", func(t *testing.T) {
		_, err := f.svc.ExtractDocument(ctx, bookingID, ExtractRequest{ApplicantID: primary, Category: "backAadhar"})
		assert.ErrorIs(t, err, ErrUnsupportedUpload)
		assert.Zero(t, f.ocr.calls)
	})

	t.Run("unknown applicant never calls OCR", func(t *testing.T) {
		_, err := f.svc.ExtractDocument(ctx, bookingID, ExtractRequest{ApplicantID: "applicant-99", Category: "pan"})
		assert.ErrorIs(t, err, roster.ErrApplicantNotFound)
		assert.Zero(t, f.ocr.calls)
	})

	t.Run("front aadhaar merges and files the document", func(t *testing.T) {
		f.ocr.fields = ingest.OCRFields{FirstName: "Asha", LastName: "Rao", DateOfBirth: "3/7/1990", AadhaarNumber: "123412341234"}
		res, err := f.svc.ExtractDocument(ctx, bookingID, ExtractRequest{
			ApplicantID: primary,
			Category:    "frontAadhar",
			FileName:    "front.jpg",
			Content:     []byte("img"),
			DocumentID:  "doc-9",
		})
		require.NoError(t, err)
		a, _ := res.Session.Roster.Find(primary)
		assert.Equal(t, "Asha Rao", a.FullName)
		assert.Equal(t, "1990-07-03", a.DateOfBirth)
		assert.Equal(t, []string{"doc-9"}, res.Session.Files.For(primary)[models.CategoryFrontAadhar])
	})

	t.Run("OCR failure", func(t *testing.T) {
		f.ocr.err = errors.New("scanner offline")
		_, err := f.svc.ExtractDocument(ctx, bookingID, ExtractRequest{ApplicantID: primary, Category: "pan"})
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})
}

func envelope(t *testing.T, data string) []byte {
	t.Helper()
	raw, err := json.Marshal(ingest.BuildEnvelope(bookingID, "", json.RawMessage(data)))
	require.NoError(t, err)
	return raw
}

func TestIngestEnvelope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.IngestEnvelope(ctx, ingest.Message{
		Origin:    origin,
		MessageID: "m-1",
		Body:      envelope(t, `[{"generalDetails":{"firstName":"Asha","lastName":"Rao"}},{"generalDetails":{"firstName":"Bala"}},{"addressForCorrespondence":{"corrCity":"Pune"}}]`),
	})
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, bookingID, res.BookingID)

	sess, err := f.svc.Get(ctx, bookingID)
	require.NoError(t, err, "the first envelope creates the session")
	assert.False(t, sess.Roster.Seeded(), "no primary before the booking is loaded")
	co := sess.Roster.CoApplicants()
	require.Len(t, co, 3)
	assert.Equal(t, "Asha Rao", co[0].FullName)
	assert.Equal(t, "Bala", co[1].FirstName)
	assert.Equal(t, "Pune", sess.Address.Correspondence.City)

	loaded, err := f.svc.Load(ctx, bookingID)
	require.NoError(t, err)
	p, ok := loaded.Roster.Primary()
	require.True(t, ok, "load seeds the primary")
	assert.Empty(t, p.FirstName)
	require.Len(t, loaded.Roster.CoApplicants(), 3)
	assert.Equal(t, "Asha Rao", loaded.Roster.CoApplicants()[0].FullName)
	assert.Equal(t, "Pune", loaded.Address.Correspondence.City)

	dup, err := f.svc.IngestEnvelope(ctx, ingest.Message{Origin: origin, MessageID: "m-1", Body: envelope(t, `[]`)})
	require.NoError(t, err)
	assert.False(t, dup.Accepted)
	assert.Equal(t, ingest.ReasonDuplicate, dup.Reason)

	foreign, err := f.svc.IngestEnvelope(ctx, ingest.Message{Origin: "https://evil.example.com", Body: envelope(t, `[]`)})
	require.NoError(t, err)
	assert.Equal(t, ingest.ReasonOrigin, foreign.Reason)
}

func TestSaveAndPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)
	f.name(t, primaryID(t, sess), "Asha", "Rao")
	_, coID, err := f.svc.AddApplicant(ctx, bookingID)
	require.NoError(t, err)
	f.name(t, coID, "Bala", "Iyer")

	res, err := f.svc.SaveAndPreview(ctx, bookingID, false)
	require.NoError(t, err)
	assert.Equal(t, "2 applicant(s) saved successfully!", res.Report.Message)
	assert.Equal(t, wizard.PhasePreview, res.Session.Wizard.Phase)
	assert.Equal(t, wizard.StageVerifyDetails, res.Session.Wizard.CurrentStage)
	assert.Len(t, res.Session.PersistedIDs, 2)
	require.NotNil(t, res.Session.LastSave)

	back, err := f.svc.BackToDetails(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StageSubmitDetails, back.Wizard.CurrentStage)
	assert.Equal(t, wizard.PhaseForm, back.Wizard.Phase)
}

func TestSaveAndPreview_PartialFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)
	primary := primaryID(t, sess)
	f.name(t, primary, "Asha", "Rao")
	_, coID, err := f.svc.AddApplicant(ctx, bookingID)
	require.NoError(t, err)
	f.name(t, coID, "Bala", "Iyer")
	_, _, err = f.svc.RecordUpload(ctx, bookingID, ingest.UploadEvent{ApplicantID: primary, Category: "pan", DocumentID: "doc-1"}, "")
	require.NoError(t, err)

	f.records.failCreate = map[string]error{"Bala": &models.RemoteError{
		Operation: "createApplicant", StatusCode: 400, Body: &models.RemoteErrorBody{Message: "Duplicate PAN"},
	}}

	res, err := f.svc.SaveAndPreview(ctx, bookingID, false)
	var create *persist.CreateError
	require.ErrorAs(t, err, &create)
	assert.Equal(t, "Duplicate PAN", create.Message)
	assert.Equal(t, map[string]string{primary: "rec-Asha"}, res.Session.PersistedIDs)
	assert.True(t, res.Session.Files.For(primary).Empty(), "saved applicant's uploads are attached")
	assert.Equal(t, wizard.PhaseForm, res.Session.Wizard.Phase)
	require.NotNil(t, res.Session.LastSave)
	assert.Equal(t, []string{coID}, res.Session.LastSave.Failed())

	f.records.failCreate = nil
	res, err = f.svc.SaveAndPreview(ctx, bookingID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.SavedCount)
	assert.Equal(t, wizard.PhasePreview, res.Session.Wizard.Phase)
	assert.Equal(t, 2, res.Session.Roster.Len(), "reloaded roster has both applicants once")

	_, err = f.svc.SaveAndPreview(ctx, bookingID, true)
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestSaveAndPreview_ValidationFocus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)
	f.name(t, primaryID(t, sess), "Asha", "")

	res, err := f.svc.SaveAndPreview(ctx, bookingID, false)
	assert.ErrorIs(t, err, persist.ErrValidationFailed)
	assert.Equal(t, primaryID(t, sess), res.Session.Roster.Open())
	assert.Empty(t, f.records.rows, "no creates on validation failure")
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.verified(t)

	_, err := f.svc.Submit(ctx, bookingID)
	assert.ErrorIs(t, err, ErrNotSaved)

	f.name(t, primaryID(t, sess), "Asha", "Rao")
	_, err = f.svc.SaveAndPreview(ctx, bookingID, false)
	require.NoError(t, err)

	done, err := f.svc.Submit(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhaseThanks, done.Wizard.Phase)
	assert.ElementsMatch(t, wizard.Stages, done.Wizard.CompletedStages)

	again, err := f.svc.Submit(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhaseThanks, again.Wizard.Phase)
	assert.Equal(t, []string{SubmittedMessage + ":" + bookingID}, f.events.published)
}

func TestSubmit_PublishFailureKeepsSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.events.err = errors.New("rpc error: code = Unavailable")
	sess := f.verified(t)
	f.name(t, primaryID(t, sess), "Asha", "Rao")
	_, err := f.svc.SaveAndPreview(ctx, bookingID, false)
	require.NoError(t, err)

	done, err := f.svc.Submit(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhaseThanks, done.Wizard.Phase)
	assert.Len(t, f.events.published, 1)
}

func TestToStandard(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"missing session", session.ErrSessionNotFound, apperrors.ErrCodeSessionNotFound},
		{"unknown applicant", roster.ErrApplicantNotFound, apperrors.ErrCodeApplicantNotFound},
		{"primary removal", roster.ErrPrimaryRemoval, apperrors.ErrCodeRosterRule},
		{"unknown field", models.ErrUnknownField, apperrors.ErrCodeInvalidField},
		{"validation", &persist.ValidationError{ApplicantID: "applicant-1", Messages: []string{"Last Name is required"}}, apperrors.ErrCodeValidationFailed},
		{"in progress", persist.ErrSaveInProgress, apperrors.ErrCodeSaveInProgress},
		{"create", &persist.CreateError{ApplicantID: "applicant-2", Message: "Duplicate"}, apperrors.ErrCodeRecordCreateFailed},
		{"ocr", wrapExtraction(errors.New("x")), apperrors.ErrCodeOCRExtractionFailed},
		{"ocr timeout", wrapExtraction(context.DeadlineExceeded), apperrors.ErrCodeOCRTimeout},
		{"remote", &models.RemoteError{Operation: "fetch", StatusCode: 503}, apperrors.ErrCodeRecordStoreUnavailable},
		{"missing booking", ErrMissingBookingID, apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ToStandard(bookingID, tt.err).Code)
		})
	}

	create := ToStandard(bookingID, &persist.CreateError{ApplicantID: "applicant-2", Message: "Duplicate"})
	assert.Equal(t, "Duplicate", create.Message)
	assert.Equal(t, "applicant-2", create.Metadata["applicantId"])
}
