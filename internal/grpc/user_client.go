package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

const (
	getUserMethod   = "/user.UserInternal/GetUser"
	bulkUsersMethod = "/user.UserInternal/BulkUsers"
)

// UserClient wraps the user-service gRPC API.
type UserClient struct {
	conn grpc.ClientConnInterface
}

// NewUserClient constructs the wrapper.
func NewUserClient(conn grpc.ClientConnInterface) *UserClient {
	return &UserClient{conn: conn}
}

// GetUser retrieves user details.
func (u *UserClient) GetUser(ctx context.Context, userID int64) (models.User, error) {
	req, err := structpb.NewStruct(map[string]any{"user_id": userID})
	if err != nil {
		return models.User{}, err
	}
	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, getUserMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.User{}, repositories.ErrUserNotFound
		}
		return models.User{}, err
	}
	user := userFromStruct(resp)
	if user.ID == 0 {
		return models.User{}, repositories.ErrUserNotFound
	}
	return user, nil
}

// BulkUsers fetches multiple users in one call.
func (u *UserClient) BulkUsers(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	req, err := structpb.NewStruct(map[string]any{"ids": values})
	if err != nil {
		return nil, err
	}

	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, bulkUsersMethod, req, resp); err != nil {
		return nil, err
	}

	list := resp.GetFields()["users"].GetListValue()
	if list == nil {
		return nil, errors.New("bulk users: missing users field")
	}
	users := make([]models.User, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		user := userFromStruct(v.GetStructValue())
		if user.ID != 0 {
			users = append(users, user)
		}
	}
	return users, nil
}

func userFromStruct(s *structpb.Struct) models.User {
	fields := s.GetFields()
	user := models.User{
		ID:        int64(fields["id"].GetNumberValue()),
		Username:  fields["username"].GetStringValue(),
		AvatarURL: fields["avatar_url"].GetStringValue(),
	}
	for _, role := range fields["roles"].GetListValue().GetValues() {
		user.Roles = append(user.Roles, role.GetStringValue())
	}
	return user
}

var _ repositories.UserDirectory = (*UserClient)(nil)
