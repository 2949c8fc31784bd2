package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room, membership, message and
// file endpoints. These are the persistence collaborators the realtime
// core consults; live fan-out rides the websocket, not these routes.
type RoomHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		log:   logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// AddMemberRequest represents the add member request body.
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// PostMessageRequest represents the chat message persistence body.
type PostMessageRequest struct {
	Body string `json:"body" binding:"required,min=1,max=4096"`
}

// CreateFileRequest represents the create file request body.
type CreateFileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

// UpdateFileRequest represents the file content update body.
type UpdateFileRequest struct {
	Content string `json:"content"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	Members   []string `json:"members,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

// MessageResponse represents a persisted chat message.
type MessageResponse struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

// FileResponse represents a shared file.
type FileResponse struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updatedAt"`
}

// CreateRoom handles room creation. The creator becomes owner and member.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, userID)
	if err != nil {
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_id", room.ID).Str("owner_id", userID).Msg("room created")
	c.JSON(http.StatusCreated, roomResponse(room, nil))
}

// ListRooms lists rooms the requester owns or is a member of.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.store.ListRooms(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(room, nil))
	}
	c.JSON(http.StatusOK, response)
}

// GetRoom returns a room with its member list.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, members, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, roomResponse(room, members))
}

// AddMember adds a user to the room. Owner only.
// POST /api/rooms/:id/members
func (h *RoomHandlers) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, err := h.store.GetRoomByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if room.OwnerID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the owner can add members"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.UserID); errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	} else if err != nil {
		h.log.Error().Err(err).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), req.UserID, room.ID); err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_id", room.ID).Str("member_id", req.UserID).Msg("member added")
	c.Status(http.StatusNoContent)
}

// RemoveMember removes a user from the room. The owner can remove anyone;
// members can remove themselves. Already-grouped connections keep their
// session; revocation takes effect on the next join.
// DELETE /api/rooms/:id/members/:userId
func (h *RoomHandlers) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, err := h.store.GetRoomByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	target := c.Param("userId")
	if room.OwnerID != userID && target != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot remove other members"})
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), target, room.ID); err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to remove member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMessages returns chat history for a room, newest first.
// GET /api/rooms/:id/messages?limit=50&before=RFC3339
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before timestamp"})
			return
		}
		before = &t
	}

	limit := 50
	msgs, err := h.store.ListMessages(c.Request.Context(), room.ID, limit, before)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, MessageResponse{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// PostMessage persists a chat message. Live delivery is the websocket
// sendMessage event's concern; this endpoint only writes history.
// POST /api/rooms/:id/messages
func (h *RoomHandlers) PostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg := &store.Message{
		RoomID: room.ID,
		UserID: userID,
		Body:   req.Body,
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	})
}

// CreateFile creates an empty shared file in the room.
// POST /api/rooms/:id/files
func (h *RoomHandlers) CreateFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	var req CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	file, err := h.store.CreateFile(c.Request.Context(), room.ID, req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to create file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, fileResponse(file))
}

// ListFiles lists the room's shared files.
// GET /api/rooms/:id/files
func (h *RoomHandlers) ListFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	files, err := h.store.ListFiles(c.Request.Context(), room.ID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to list files")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]FileResponse, 0, len(files))
	for _, f := range files {
		response = append(response, fileResponse(f))
	}
	c.JSON(http.StatusOK, response)
}

// GetFile returns a single shared file with its content.
// GET /api/rooms/:id/files/:fileId
func (h *RoomHandlers) GetFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	file, err := h.store.GetFileByID(c.Request.Context(), c.Param("fileId"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && file.RoomID != room.ID) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, fileResponse(file))
}

// UpdateFile replaces a file's content. This is the explicit save path;
// live codeChange broadcasts never touch storage.
// PUT /api/rooms/:id/files/:fileId
func (h *RoomHandlers) UpdateFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, _, ok := h.authorizedRoom(c, userID)
	if !ok {
		return
	}

	file, err := h.store.GetFileByID(c.Request.Context(), c.Param("fileId"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && file.RoomID != room.ID) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.UpdateFileContent(c.Request.Context(), file.ID, req.Content); err != nil {
		h.log.Error().Err(err).Str("file_id", file.ID).Msg("failed to update file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// authorizedRoom loads the room and enforces the owner-or-member rule,
// writing the error response itself on failure.
func (h *RoomHandlers) authorizedRoom(c *gin.Context, userID string) (*store.Room, []string, bool) {
	room, err := h.store.GetRoomByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return nil, nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, nil, false
	}

	members, err := h.store.ListMembers(c.Request.Context(), room.ID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to list members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, nil, false
	}

	authorized := room.OwnerID == userID
	for _, m := range members {
		if m == userID {
			authorized = true
			break
		}
	}
	if !authorized {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "you are not a member of this room"})
		return nil, nil, false
	}

	return room, members, true
}

func roomResponse(room *store.Room, members []string) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		OwnerID:   room.OwnerID,
		Members:   members,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}

func fileResponse(f *store.File) FileResponse {
	return FileResponse{
		ID:        f.ID,
		RoomID:    f.RoomID,
		Name:      f.Name,
		Content:   f.Content,
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}
