package database_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

var practitionerCols = []string{
	"id", "first_name", "last_name", "email", "phone", "clinic_name",
	"street_address", "city", "state", "postal_code", "country",
	"latitude", "longitude", "website", "bio", "years_experience",
	"certifications", "specialties", "status", "approved_at", "approved_by",
	"created_at", "updated_at",
}

func newMock(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func practitionerRow(id string, lat, lng driver.Value) []driver.Value {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "Jane", "Doe", "jane@example.com", nil, "Doe Clinic",
		"1 High St", "Leeds", nil, "LS1 1AA", "United Kingdom",
		lat, lng, "https://doe.example", nil, int64(7),
		"{AK,\"Level 2\"}", "{}", "approved", created, "Admin",
		created, created,
	}
}

func TestPractitionerAdapter_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("maps nullable columns", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectQuery(`SELECT .* FROM "practitioners" WHERE \("id" = 'p1'\) LIMIT 1`).
			WillReturnRows(sqlmock.NewRows(practitionerCols).AddRow(practitionerRow("p1", 53.8, -1.55)...))

		p, err := adapter.GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, "", p.Phone)
		assert.Equal(t, []string{"AK", "Level 2"}, p.Certifications)
		assert.Equal(t, []string{}, p.Specialties)
		assert.Equal(t, entities.PractitionerStatusApproved, p.Status)
		require.True(t, p.HasCoordinates())
		assert.InDelta(t, 53.8, *p.Latitude, 1e-9)
		require.NotNil(t, p.ApprovedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectQuery(`SELECT .* FROM "practitioners"`).
			WillReturnRows(sqlmock.NewRows(practitionerCols))

		p, err := adapter.GetByID(ctx, "nope")
		assert.Nil(t, p)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestPractitionerAdapter_GetByEmail_Absent(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPractitionerAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "practitioners" WHERE \("email" = 'new@example.com'\)`).
		WillReturnRows(sqlmock.NewRows(practitionerCols))

	p, err := adapter.GetByEmail(context.Background(), "new@example.com")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestPractitionerAdapter_Create(t *testing.T) {
	now := time.Now().UTC()
	p := &entities.Practitioner{
		ID: "p1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
		ClinicName: "Doe Clinic", StreetAddress: "1 High St", City: "Leeds",
		PostalCode: "LS1 1AA", Country: "United Kingdom",
		Status: entities.PractitionerStatusPending, CreatedAt: now, UpdatedAt: now,
	}

	t.Run("inserts with null coordinates", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectExec(`INSERT INTO "practitioners" .*"latitude".*VALUES .*NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.Create(context.Background(), p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectExec(`INSERT INTO "practitioners"`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := adapter.Create(context.Background(), p)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("other failures are internal", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectExec(`INSERT INTO "practitioners"`).WillReturnError(errors.New("boom"))

		err := adapter.Create(context.Background(), p)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	})
}

func TestPractitionerAdapter_Update_LeavesModerationColumns(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPractitionerAdapter(client)

	mock.ExpectExec(`UPDATE "practitioners" SET .* WHERE \("id" = 'p1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Update(context.Background(), &entities.Practitioner{ID: "p1", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPractitionerAdapter_ListSearchable(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPractitionerAdapter(client)

	mock.ExpectQuery(`WHERE \(\("status" = 'approved'\) AND \("latitude" IS NOT NULL\) AND \("longitude" IS NOT NULL\)\) ORDER BY "created_at" ASC, "id" ASC`).
		WillReturnRows(sqlmock.NewRows(practitionerCols).
			AddRow(practitionerRow("p1", 53.8, -1.55)...).
			AddRow(practitionerRow("p2", 51.5, -0.12)...))

	list, err := adapter.ListSearchable(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPractitionerAdapter_List_FilterByStatus(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPractitionerAdapter(client)

	mock.ExpectQuery(`WHERE \("status" = 'pending'\) ORDER BY "created_at" DESC, "id" ASC LIMIT 20`).
		WillReturnRows(sqlmock.NewRows(practitionerCols))

	list, err := adapter.List(context.Background(), entities.PractitionerFilter{Status: entities.PractitionerStatusPending, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPractitionerAdapter_UpdateStatus(t *testing.T) {
	approvedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("writes moderation columns", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectExec(`UPDATE "practitioners" SET .*"approved_by"='Admin'.*"status"='approved'`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.UpdateStatus(context.Background(), "p1", entities.PractitionerStatusApproved, &approvedAt, "Admin")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPractitionerAdapter(client)

		mock.ExpectExec(`UPDATE "practitioners"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.UpdateStatus(context.Background(), "nope", entities.PractitionerStatusRejected, nil, "Admin")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestPractitionerAdapter_Delete(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPractitionerAdapter(client)

	mock.ExpectExec(`DELETE FROM "practitioners" WHERE \("id" = 'p1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
