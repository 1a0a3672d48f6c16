package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/user"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// UserHandler は stockly.v1.UserService の gRPC 実装です。
type UserHandler struct {
	svc user.UseCase
}

// NewUserHandler は UserHandler を生成します。
func NewUserHandler(svc user.UseCase) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register は UserService を登録します。
func (h *UserHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("UserService", map[string]unaryMethod{
		"CreateUser": h.createUser,
		"UpdateUser": h.updateUser,
		"DeleteUser": h.deleteUser,
		"GetUser":    h.getUser,
		"ListUsers":  h.listUsers,
		"LookupUser": h.lookupUser,

		"CheckPasswordStrength": h.checkPasswordStrength,
	}), h)
}

func (h *UserHandler) createUser(ctx context.Context, req *request) (object, error) {
	in := user.CreateUserInput{
		OrganizationID: req.str("organization_id"),
		Email:          req.str("email"),
		Name:           req.str("name"),
		Role:           user.Role(req.str("role")),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"user": nested(userObject(created))}, nil
}

func (h *UserHandler) updateUser(ctx context.Context, req *request) (object, error) {
	in := user.UpdateUserInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		Name:           req.optStr("name"),
	}
	if r := req.optStr("role"); r != nil {
		role := user.Role(*r)
		in.Role = &role
	}
	if s := req.optStr("status"); s != nil {
		st := user.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"user": nested(userObject(updated))}, nil
}

func (h *UserHandler) deleteUser(ctx context.Context, req *request) (object, error) {
	in := user.DeleteUserInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteUser(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func (h *UserHandler) getUser(ctx context.Context, req *request) (object, error) {
	in := user.GetUserInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"user": nested(userObject(found))}, nil
}

// lookupUser はメールアドレスでユーザーを引きます。組織をまたいで検索します。
func (h *UserHandler) lookupUser(ctx context.Context, req *request) (object, error) {
	in := user.LookupUserInput{Identifier: req.str("identifier")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.LookupUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"user": nested(userObject(found))}, nil
}

func (h *UserHandler) listUsers(ctx context.Context, req *request) (object, error) {
	in := user.ListUsersInput{
		OrganizationID: req.str("organization_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := user.Status(*s)
		in.Status = &st
	}
	if r := req.optStr("role"); r != nil && *r != "" {
		role := user.Role(*r)
		in.Role = &role
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListUsers(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("users", listValue(result.Users, userObject), result.NextPageToken), nil
}

func userObject(u *user.User) object {
	if u == nil {
		return nil
	}
	return object{
		"id":              u.ID,
		"organization_id": u.OrganizationID,
		"email":           u.Email,
		"name":            u.Name,
		"role":            string(u.Role),
		"status":          string(u.Status),
		"created_at":      timeValue(u.CreatedAt),
		"updated_at":      timeValue(u.UpdatedAt),
	}
}

// checkPasswordStrength は登録画面の強度表示用にスコアとラベルを返します。パスワードは保存しません。
func (h *UserHandler) checkPasswordStrength(_ context.Context, req *request) (object, error) {
	password := req.str("password")
	if err := req.validate(); err != nil {
		return nil, err
	}
	st := format.PasswordStrength(password)
	return object{"score": st.Score, "label": st.Label}, nil
}
