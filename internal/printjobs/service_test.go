package printjobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

func TestSubmitRequiresSession(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.svc.Submit(context.Background(), nil, []File{file("cv.pdf", pdfBody)})
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Zero(t, fx.storage.count())
}

func TestSubmitRequiresAtLeastOneFile(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.svc.Submit(context.Background(), userSession(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "please select at least one file", pkgerrors.As(err).Message())
}

func TestSubmitStoresPendingJob(t *testing.T) {
	fx := newFixture(t, nil)
	sess := userSession()

	job, err := fx.svc.Submit(context.Background(), sess, []File{
		file("cv.pdf", pdfBody),
		file("my photo.png", pngBody),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PrintJobStatusPending, job.Status)
	assert.Equal(t, 2, job.FileCount)
	assert.Equal(t, []string{"cv.pdf", "my-photo.png"}, job.FileNames)
	assert.Equal(t, sess.UserID, job.UserID)

	pdfKey := fmt.Sprintf("print_uploads/%s/cv.pdf-1700000000000", sess.UserID)
	require.Len(t, job.FileURLs, 2)
	assert.Equal(t, "https://storage.googleapis.com/prints/"+pdfKey, job.FileURLs[0])

	stored := fx.storage.objects[pdfKey]
	assert.Equal(t, pdfBody, stored.body, "sniffed header must be replayed into the upload")
	assert.Equal(t, "application/pdf", stored.contentType)

	require.Len(t, fx.publisher.sent, 1)
	msg := fx.publisher.sent[0]
	assert.Equal(t, "sf-print-jobs", msg.topic)
	assert.Equal(t, "print_job.submitted", msg.attrs["event_type"])
	event, ok := msg.payload.(SubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, job.ID, event.JobID)
	assert.Equal(t, 2, event.FileCount)

	page, err := fx.svc.ListMine(context.Background(), sess, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, job.ID, page.Items[0].ID)
	assert.Equal(t, []string{"cv.pdf", "my-photo.png"}, page.Items[0].FileNames)
}

func TestSubmitRejectsUnprintableFiles(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.svc.Submit(context.Background(), userSession(), []File{
		file("cv.pdf", pdfBody),
		file("tool.bin", elfBody),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, fx.storage.count(), "validation happens before any upload")
}

func TestSubmitRejectsEmptyFile(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.svc.Submit(context.Background(), userSession(), []File{file("blank.pdf", "")})
	require.Error(t, err)
	assert.Equal(t, "blank.pdf is empty", pkgerrors.As(err).Message())
}

func TestSubmitEnforcesLimits(t *testing.T) {
	fx := newFixture(t, func(p *Params) {
		p.MaxFiles = 1
		p.MaxBytes = 16
	})

	_, err := fx.svc.Submit(context.Background(), userSession(), []File{file("a.txt", "a"), file("b.txt", "b")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.Submit(context.Background(), userSession(), []File{file("cv.pdf", pdfBody)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSubmitUploadFailureLeavesNothingBehind(t *testing.T) {
	fx := newFixture(t, nil)
	fx.storage.failOn = "second"
	sess := userSession()

	_, err := fx.svc.Submit(context.Background(), sess, []File{
		file("first.pdf", pdfBody),
		file("second.pdf", pdfBody),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "bucket quota exceeded")

	assert.Zero(t, fx.storage.count())
	require.Len(t, fx.storage.deleted, 1)
	assert.True(t, strings.Contains(fx.storage.deleted[0], "first.pdf"))
	assert.Empty(t, fx.publisher.sent)

	page, err := fx.svc.ListMine(context.Background(), sess, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSubmitCleanupErrorsDoNotMaskUploadFailure(t *testing.T) {
	fx := newFixture(t, nil)
	fx.storage.failOn = "second"
	fx.storage.deleteErr = errors.New("permission denied")

	_, err := fx.svc.Submit(context.Background(), userSession(), []File{
		file("first.pdf", pdfBody),
		file("second.pdf", pdfBody),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket quota exceeded")
}

func TestSubmitPublishIsBestEffort(t *testing.T) {
	fx := newFixture(t, nil)
	fx.publisher.err = errors.New("topic not found")

	job, err := fx.svc.Submit(context.Background(), userSession(), []File{file("notes.txt", "print me please")})
	require.NoError(t, err)
	assert.Equal(t, enums.PrintJobStatusPending, job.Status)
}

func TestSubmitSkipsPublishWhenDisabled(t *testing.T) {
	fx := newFixture(t, func(p *Params) { p.Publish = false })

	_, err := fx.svc.Submit(context.Background(), userSession(), []File{file("notes.txt", "print me please")})
	require.NoError(t, err)
	assert.Empty(t, fx.publisher.sent)
}

func TestSubmitDisambiguatesRepeatedNames(t *testing.T) {
	fx := newFixture(t, nil)

	job, err := fx.svc.Submit(context.Background(), userSession(), []File{
		file("copy.txt", "one"),
		file("copy.txt", "two"),
	})
	require.NoError(t, err)
	require.Len(t, job.FileURLs, 2)
	assert.NotEqual(t, job.FileURLs[0], job.FileURLs[1])
	assert.Equal(t, 2, fx.storage.count())
}

func TestListMineScopesToUser(t *testing.T) {
	fx := newFixture(t, nil)
	alice, bob := userSession(), userSession()

	for i := 0; i < 2; i++ {
		_, err := fx.svc.Submit(context.Background(), alice, []File{file(fmt.Sprintf("a%d.txt", i), "alice")})
		require.NoError(t, err)
	}
	_, err := fx.svc.Submit(context.Background(), bob, []File{file("b.txt", "bob")})
	require.NoError(t, err)

	page, err := fx.svc.ListMine(context.Background(), alice, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	for _, item := range page.Items {
		assert.Equal(t, alice.UserID, item.UserID)
		assert.Empty(t, item.DownloadURLs)
	}

	_, err = fx.svc.ListMine(context.Background(), nil, pagination.Params{})
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestAdminListFiltersAndSigns(t *testing.T) {
	fx := newFixture(t, nil)

	first, err := fx.svc.Submit(context.Background(), userSession(), []File{file("a.txt", "one")})
	require.NoError(t, err)
	_, err = fx.svc.Submit(context.Background(), userSession(), []File{file("b.txt", "two")})
	require.NoError(t, err)
	_, err = fx.svc.UpdateStatus(context.Background(), first.ID, enums.PrintJobStatusReady)
	require.NoError(t, err)

	all, err := fx.svc.List(context.Background(), ListInput{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	ready := enums.PrintJobStatusReady
	filtered, err := fx.svc.List(context.Background(), ListInput{Status: &ready})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, first.ID, filtered.Items[0].ID)
	require.Len(t, filtered.Items[0].DownloadURLs, 1)
	assert.True(t, strings.HasPrefix(filtered.Items[0].DownloadURLs[0], "https://signed.test/print_uploads/"))

	fx.storage.signErr = errors.New("no signer")
	unsigned, err := fx.svc.List(context.Background(), ListInput{Status: &ready})
	require.NoError(t, err)
	assert.Empty(t, unsigned.Items[0].DownloadURLs)
	assert.Len(t, unsigned.Items[0].FileURLs, 1)

	bogus := enums.PrintJobStatus("Lost")
	_, err = fx.svc.List(context.Background(), ListInput{Status: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateStatusTransitions(t *testing.T) {
	fx := newFixture(t, nil)
	job, err := fx.svc.Submit(context.Background(), userSession(), []File{file("a.txt", "one")})
	require.NoError(t, err)

	updated, err := fx.svc.UpdateStatus(context.Background(), job.ID, enums.PrintJobStatusPrinting)
	require.NoError(t, err)
	assert.Equal(t, enums.PrintJobStatusPrinting, updated.Status)

	_, err = fx.svc.UpdateStatus(context.Background(), job.ID, enums.PrintJobStatusCollected)
	require.NoError(t, err)

	same, err := fx.svc.UpdateStatus(context.Background(), job.ID, enums.PrintJobStatusCollected)
	require.NoError(t, err)
	assert.Equal(t, enums.PrintJobStatusCollected, same.Status)

	_, err = fx.svc.UpdateStatus(context.Background(), job.ID, enums.PrintJobStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = fx.svc.UpdateStatus(context.Background(), job.ID, enums.PrintJobStatus("Lost"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.UpdateStatus(context.Background(), uuid.New(), enums.PrintJobStatusReady)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(Params{})
	assert.Error(t, err)
}
