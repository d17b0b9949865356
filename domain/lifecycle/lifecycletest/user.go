package lifecycletest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"crudkit/domain/lifecycle"
	"crudkit/validation"
)

// UserKind 测试实体类型名称
const UserKind = "User"

// User 测试实体：按 Name 唯一
type User struct {
	lifecycle.Entity[uuid.UUID]

	Name      string
	BirthDate time.Time
}

// WithLifecycle 返回替换了生命周期元数据的副本
func (u User) WithLifecycle(meta lifecycle.Entity[uuid.UUID]) User {
	u.Entity = meta
	return u
}

// UserModel User 的只读投影
type UserModel struct {
	ID        uuid.UUID `json:"id"`
	Version   int64     `json:"version"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birthDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateUser 创建意图
type CreateUser struct {
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birthDate"`
}

func (c CreateUser) Validate() error {
	return validateUser(c.Name, c.BirthDate)
}

func (c CreateUser) String() string {
	return fmt.Sprintf("CreateUser(name=%s, birthDate=%s)", c.Name, c.BirthDate.Format(time.DateOnly))
}

// UpdateUser 更新意图
type UpdateUser struct {
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birthDate"`
}

func (u UpdateUser) Validate() error {
	return validateUser(u.Name, u.BirthDate)
}

func (u UpdateUser) String() string {
	return fmt.Sprintf("UpdateUser(name=%s, birthDate=%s)", u.Name, u.BirthDate.Format(time.DateOnly))
}

func validateUser(name string, birthDate time.Time) error {
	if err := validation.ValidateRequired(name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringLength(name, "name", 1, 100); err != nil {
		return err
	}
	return validation.ValidateNotAfter(birthDate, "birthDate", time.Now().UTC())
}

// UserMapper User 的映射管线
type UserMapper struct{}

func (UserMapper) EntityToBeCreatedFrom(intent CreateUser, meta lifecycle.Entity[uuid.UUID]) User {
	return User{Entity: meta, Name: intent.Name, BirthDate: intent.BirthDate}
}

func (UserMapper) EntityToModel(u User) UserModel {
	return UserModel{
		ID:        u.ID,
		Version:   u.Version,
		Name:      u.Name,
		BirthDate: u.BirthDate,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (UserMapper) UpdatedEntityWith(u User, intent UpdateUser) User {
	u.Name = intent.Name
	u.BirthDate = intent.BirthDate
	return u
}

// SameUserName User 的唯一性判定：同名即重复
func SameUserName(a, b User) bool {
	return a.Name == b.Name
}

// NewUser 构造版本为 0 的 User，便于直接测试持久化端口
func NewUser(name string, birthDate time.Time, now time.Time) User {
	return User{
		Entity:    lifecycle.NewEntity(uuid.New(), now),
		Name:      name,
		BirthDate: birthDate,
	}
}

// UserService 以 User 实例化的生命周期服务
type UserService = lifecycle.Service[uuid.UUID, User, UserModel, CreateUser, UpdateUser]

// NewUserService 以给定持久化端口创建 User 服务
func NewUserService(repo lifecycle.IRepository[uuid.UUID, User], opts ...lifecycle.Option) *UserService {
	return lifecycle.NewService[uuid.UUID, User, UserModel, CreateUser, UpdateUser](
		UserKind, repo, UserMapper{}, lifecycle.UUIDGenerator{}, opts...)
}
