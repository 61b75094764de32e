package service

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
)

// GroupService implements group creation and membership management.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// RegisterRoutes mounts the group endpoints under the given router.
// All group routes require authentication.
func (s *GroupService) RegisterRoutes(api fiber.Router, requireAuth fiber.Handler) {
	groups := api.Group("/groups", requireAuth)
	groups.Post("/create", s.CreateGroup)
	groups.Post("/add_user", s.AddUser)
	groups.Get("/members", s.ShowMembers)
	groups.Get("/details", s.ShowDetails)
	groups.Post("/delete", s.DeleteGroup)
}

type createGroupRequest struct {
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

// CreateGroup creates a named group from a list of member emails.
func (s *GroupService) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.GroupName == "" {
		return badRequest(c, "group_name is required")
	}

	memberIDs := make([]string, 0, len(req.Members))
	for _, email := range req.Members {
		user, err := s.store.GetUserByEmail(c.Context(), email)
		if err != nil {
			return badRequest(c, fmt.Sprintf("no user with email %s", email))
		}
		memberIDs = append(memberIDs, user.ID)
	}

	group := &models.Group{Name: req.GroupName, MemberIDs: memberIDs}
	if err := s.store.CreateGroup(c.Context(), group); err != nil {
		return fail(c, err)
	}

	slog.Info("group created", "group_id", group.ID, "name", group.Name, "members", len(memberIDs))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Group created successfully"})
}

type addUserRequest struct {
	GroupName string `json:"group_name"`
	UserEmail string `json:"user_email"`
}

// AddUser adds a user to an existing group. Adding someone twice is
// rejected and leaves the membership unchanged.
func (s *GroupService) AddUser(c *fiber.Ctx) error {
	var req addUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	group, err := s.store.GetGroupByName(c.Context(), req.GroupName)
	if err != nil {
		return fail(c, err)
	}
	user, err := s.store.GetUserByEmail(c.Context(), req.UserEmail)
	if err != nil {
		return fail(c, err)
	}

	if err := s.store.AddGroupMember(c.Context(), group.ID, user.ID); err != nil {
		return fail(c, err)
	}

	slog.Info("member added", "group_id", group.ID, "user_id", user.ID)
	return c.JSON(fiber.Map{"message": "User added to group"})
}

// ShowMembers lists the members of a group as display strings.
func (s *GroupService) ShowMembers(c *fiber.Ctx) error {
	group, err := s.store.GetGroupByName(c.Context(), c.Query("name"))
	if err != nil {
		return fail(c, err)
	}

	members := make([]string, 0, len(group.MemberIDs))
	for _, id := range group.MemberIDs {
		user, err := s.store.GetUserByID(c.Context(), id)
		if err != nil {
			return fail(c, err)
		}
		members = append(members, fmt.Sprintf("%s <%s>", user.DisplayName, user.Email))
	}

	return c.JSON(fiber.Map{"members": members})
}

// ShowDetails returns the group with its members and outstanding debts.
func (s *GroupService) ShowDetails(c *fiber.Ctx) error {
	group, err := s.store.GetGroupByName(c.Context(), c.Query("name"))
	if err != nil {
		return fail(c, err)
	}
	debts, err := s.store.ListGroupDebts(c.Context(), group.ID)
	if err != nil {
		return fail(c, err)
	}

	debtViews := make([]fiber.Map, 0, len(debts))
	for _, d := range debts {
		debtViews = append(debtViews, fiber.Map{
			"from_user": d.FromUser,
			"to_user":   d.ToUser,
			"amount":    d.Amount,
		})
	}

	return c.JSON(fiber.Map{
		"group_name": group.Name,
		"members":    group.MemberIDs,
		"debts":      debtViews,
	})
}

type deleteGroupRequest struct {
	GroupName string `json:"group_name"`
}

// DeleteGroup removes a group. Its debts go with it; expenses that
// referenced the group survive without one.
func (s *GroupService) DeleteGroup(c *fiber.Ctx) error {
	var req deleteGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	group, err := s.store.GetGroupByName(c.Context(), req.GroupName)
	if err != nil {
		return fail(c, err)
	}
	if err := s.store.DeleteGroup(c.Context(), group.ID); err != nil {
		return fail(c, err)
	}

	slog.Info("group deleted", "group_id", group.ID, "name", group.Name)
	return c.JSON(fiber.Map{"message": "Group deleted successfully"})
}
