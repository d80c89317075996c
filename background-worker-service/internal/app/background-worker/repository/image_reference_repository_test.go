package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ImageReferenceRepositoryTestSuite тестовый suite для PostgreSQL repository
type ImageReferenceRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  ImageReferenceRepository
	sqlDB *sql.DB
}

func TestImageReferenceRepositorySuite(t *testing.T) {
	suite.Run(t, new(ImageReferenceRepositoryTestSuite))
}

func (s *ImageReferenceRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewImageReferenceRepository(s.db)
}

func (s *ImageReferenceRepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.sqlDB.Close()
}

// ===================== ListImageURLs Tests =====================

func (s *ImageReferenceRepositoryTestSuite) TestListImageURLs_Success() {
	rows := sqlmock.NewRows([]string{"image"}).
		AddRow("https://shop.s3.amazonaws.com/products/a.png").
		AddRow("https://cdn.example.com/b.png")

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "image" FROM "products" WHERE`)).
		WillReturnRows(rows)

	urls, err := s.repo.ListImageURLs(context.Background())

	s.NoError(err)
	s.Equal([]string{
		"https://shop.s3.amazonaws.com/products/a.png",
		"https://cdn.example.com/b.png",
	}, urls)
}

func (s *ImageReferenceRepositoryTestSuite) TestListImageURLs_Empty() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "image" FROM "products" WHERE`)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))

	urls, err := s.repo.ListImageURLs(context.Background())

	s.NoError(err)
	s.Empty(urls)
}

func (s *ImageReferenceRepositoryTestSuite) TestListImageURLs_DatabaseError() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "image" FROM "products" WHERE`)).
		WillReturnError(errors.New("connection refused"))

	urls, err := s.repo.ListImageURLs(context.Background())

	s.Error(err)
	s.Nil(urls)
	s.Contains(err.Error(), "failed to list image urls")
}

// ===================== IsReferenced Tests =====================

func (s *ImageReferenceRepositoryTestSuite) TestIsReferenced() {
	tests := []struct {
		name     string
		count    int64
		expected bool
	}{
		{"referenced", 2, true},
		{"not referenced", 0, false},
	}

	for _, tt := range tests {
		url := "https://shop.s3.amazonaws.com/products/a.png"
		s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE image = $1`)).
			WithArgs(url).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

		ok, err := s.repo.IsReferenced(context.Background(), url)

		s.NoError(err, tt.name)
		s.Equal(tt.expected, ok, tt.name)
	}
}

func (s *ImageReferenceRepositoryTestSuite) TestIsReferenced_DatabaseError() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products"`)).
		WillReturnError(sql.ErrConnDone)

	ok, err := s.repo.IsReferenced(context.Background(), "https://x/products/a.png")

	s.Error(err)
	s.False(ok)
	s.ErrorIs(err, sql.ErrConnDone)
}
