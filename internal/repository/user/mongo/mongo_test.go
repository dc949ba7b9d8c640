package mongo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"
	usermongo "taskflow/internal/repository/user/mongo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type MongoUserSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *mongo.Database
	storage   *usermongo.UserStorage
	ctx       context.Context
}

func (s *MongoUserSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "27017")
	require.NoError(s.T(), err)

	s.db, err = database.NewMongoDatabase(s.ctx, config.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database:       "taskflow_test",
		ConnectTimeout: 10 * time.Second,
	}, zap.NewNop())
	require.NoError(s.T(), err)

	s.storage = usermongo.NewUserStorage(s.db, zap.NewNop())
	require.NoError(s.T(), s.storage.EnsureIndexes(s.ctx))
}

func (s *MongoUserSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Client().Disconnect(s.ctx)
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *MongoUserSuite) SetupTest() {
	_, err := s.db.Collection("users").DeleteMany(s.ctx, map[string]any{})
	require.NoError(s.T(), err)
}

func newUser(username, email string) *user.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &user.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *MongoUserSuite) TestCreateAndLookup() {
	u := newUser("alice", "alice@example.com")
	s.Require().NoError(s.storage.Create(s.ctx, u))

	byID, err := s.storage.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u, byID)

	byEmail, err := s.storage.GetByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	_, err = s.storage.GetByUsername(s.ctx, "nobody")
	s.ErrorIs(err, repo.ErrNotFound)
}

func (s *MongoUserSuite) TestDuplicates() {
	s.Require().NoError(s.storage.Create(s.ctx, newUser("alice", "alice@example.com")))

	field, ok := repo.DuplicateField(s.storage.Create(s.ctx, newUser("alice", "other@example.com")))
	s.True(ok)
	s.Equal("username", field)

	field, ok = repo.DuplicateField(s.storage.Create(s.ctx, newUser("bob", "alice@example.com")))
	s.True(ok)
	s.Equal("email", field)

	bob := newUser("bob", "bob@example.com")
	s.Require().NoError(s.storage.Create(s.ctx, bob))
	bob.Username = "alice"
	field, ok = repo.DuplicateField(s.storage.Update(s.ctx, bob))
	s.True(ok)
	s.Equal("username", field)
}

func (s *MongoUserSuite) TestDeleteAndSearch() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.storage.Create(s.ctx, newUser(fmt.Sprintf("member_%d", i), fmt.Sprintf("m%d@team.io", i))))
	}
	gone := newUser("gone", "gone@team.io")
	s.Require().NoError(s.storage.Create(s.ctx, gone))
	s.Require().NoError(s.storage.Delete(s.ctx, gone.ID))
	s.ErrorIs(s.storage.Delete(s.ctx, gone.ID), repo.ErrNotFound)

	users, total, err := s.storage.Search(s.ctx, "TEAM.IO", 2, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(users, 2)
	s.Equal("member_2", users[0].Username)
}

func TestMongoUserSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(MongoUserSuite))
}
