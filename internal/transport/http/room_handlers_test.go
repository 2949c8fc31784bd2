package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

// doJSON performs a JSON request against the test server and decodes the
// response body into out when it is non-nil.
func doJSON(t *testing.T, env *testEnv, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, env.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestRegisterLoginFlow(t *testing.T) {
	env := startTestServer(t)

	var authResp AuthResponse
	code := doJSON(t, env, http.MethodPost, "/api/register", "",
		RegisterRequest{Username: "alice", Password: "password123"}, &authResp)
	if code != http.StatusCreated || authResp.Token == "" {
		t.Fatalf("register failed: %d %+v", code, authResp)
	}

	code = doJSON(t, env, http.MethodPost, "/api/login", "",
		LoginRequest{Username: "alice", Password: "password123"}, &authResp)
	if code != http.StatusOK || authResp.Token == "" {
		t.Fatalf("login failed: %d %+v", code, authResp)
	}

	code = doJSON(t, env, http.MethodPost, "/api/login", "",
		LoginRequest{Username: "alice", Password: "nope"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", code)
	}
}

func TestGuestLogin(t *testing.T) {
	env := startTestServer(t)

	var authResp AuthResponse
	code := doJSON(t, env, http.MethodPost, "/api/guest", "", nil, &authResp)
	if code != http.StatusOK || authResp.Token == "" {
		t.Fatalf("guest login failed: %d %+v", code, authResp)
	}
}

func TestRoomCRUDAndAuthorization(t *testing.T) {
	env := startTestServer(t)

	aliceToken, _ := registerUser(t, env, "alice")
	bobToken, bobID := registerUser(t, env, "bob")

	// Unauthenticated requests are rejected.
	if code := doJSON(t, env, http.MethodPost, "/api/rooms", "", CreateRoomRequest{Name: "x"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	var room RoomResponse
	code := doJSON(t, env, http.MethodPost, "/api/rooms", aliceToken, CreateRoomRequest{Name: "general"}, &room)
	if code != http.StatusCreated || room.ID == "" {
		t.Fatalf("create room failed: %d %+v", code, room)
	}

	// Bob is not a member yet and cannot see the room.
	if code := doJSON(t, env, http.MethodGet, "/api/rooms/"+room.ID, bobToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", code)
	}

	// Only the owner can add members.
	if code := doJSON(t, env, http.MethodPost, "/api/rooms/"+room.ID+"/members", bobToken, AddMemberRequest{UserID: bobID}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner add, got %d", code)
	}
	if code := doJSON(t, env, http.MethodPost, "/api/rooms/"+room.ID+"/members", aliceToken, AddMemberRequest{UserID: bobID}, nil); code != http.StatusNoContent {
		t.Fatalf("owner add member failed: %d", code)
	}

	var got RoomResponse
	if code := doJSON(t, env, http.MethodGet, "/api/rooms/"+room.ID, bobToken, nil, &got); code != http.StatusOK {
		t.Fatalf("member get room failed: %d", code)
	}
	if len(got.Members) != 2 {
		t.Fatalf("expected 2 members, got %v", got.Members)
	}

	var rooms []RoomResponse
	if code := doJSON(t, env, http.MethodGet, "/api/rooms", bobToken, nil, &rooms); code != http.StatusOK || len(rooms) != 1 {
		t.Fatalf("member room listing failed: %d %v", code, rooms)
	}

	// Members can remove themselves but not others.
	if code := doJSON(t, env, http.MethodDelete, fmt.Sprintf("/api/rooms/%s/members/%s", room.ID, "someone-else"), bobToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 removing another member, got %d", code)
	}
	if code := doJSON(t, env, http.MethodDelete, fmt.Sprintf("/api/rooms/%s/members/%s", room.ID, bobID), bobToken, nil, nil); code != http.StatusNoContent {
		t.Fatalf("self-removal failed: %d", code)
	}

	if code := doJSON(t, env, http.MethodGet, "/api/rooms/ghost", aliceToken, nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", code)
	}
}

func TestMessageHistory(t *testing.T) {
	env := startTestServer(t)

	aliceToken, _ := registerUser(t, env, "alice")

	var room RoomResponse
	if code := doJSON(t, env, http.MethodPost, "/api/rooms", aliceToken, CreateRoomRequest{Name: "general"}, &room); code != http.StatusCreated {
		t.Fatalf("create room failed: %d", code)
	}

	for _, body := range []string{"one", "two", "three"} {
		var msg MessageResponse
		code := doJSON(t, env, http.MethodPost, "/api/rooms/"+room.ID+"/messages", aliceToken, PostMessageRequest{Body: body}, &msg)
		if code != http.StatusCreated || msg.ID == "" {
			t.Fatalf("post message failed: %d %+v", code, msg)
		}
	}

	var msgs []MessageResponse
	if code := doJSON(t, env, http.MethodGet, "/api/rooms/"+room.ID+"/messages", aliceToken, nil, &msgs); code != http.StatusOK {
		t.Fatalf("list messages failed: %d", code)
	}
	if len(msgs) != 3 || msgs[0].Body != "three" {
		t.Fatalf("expected newest first, got %+v", msgs)
	}
}

func TestFileEndpoints(t *testing.T) {
	env := startTestServer(t)

	aliceToken, _ := registerUser(t, env, "alice")
	bobToken, _ := registerUser(t, env, "bob")

	var room RoomResponse
	if code := doJSON(t, env, http.MethodPost, "/api/rooms", aliceToken, CreateRoomRequest{Name: "general"}, &room); code != http.StatusCreated {
		t.Fatalf("create room failed: %d", code)
	}

	var file FileResponse
	code := doJSON(t, env, http.MethodPost, "/api/rooms/"+room.ID+"/files", aliceToken, CreateFileRequest{Name: "main.go"}, &file)
	if code != http.StatusCreated || file.ID == "" {
		t.Fatalf("create file failed: %d %+v", code, file)
	}

	if code := doJSON(t, env, http.MethodPut, "/api/rooms/"+room.ID+"/files/"+file.ID, aliceToken, UpdateFileRequest{Content: "package main"}, nil); code != http.StatusNoContent {
		t.Fatalf("update file failed: %d", code)
	}

	var got FileResponse
	if code := doJSON(t, env, http.MethodGet, "/api/rooms/"+room.ID+"/files/"+file.ID, aliceToken, nil, &got); code != http.StatusOK {
		t.Fatalf("get file failed: %d", code)
	}
	if got.Content != "package main" {
		t.Fatalf("unexpected content: %q", got.Content)
	}

	// Non-members cannot read room files.
	if code := doJSON(t, env, http.MethodGet, "/api/rooms/"+room.ID+"/files", bobToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member file listing, got %d", code)
	}
}

func TestGuestLoginResumesSession(t *testing.T) {
	env := startTestServer(t)

	guestLogin := func(cookie *http.Cookie) (AuthResponse, *http.Cookie) {
		req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/guest", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if cookie != nil {
			req.AddCookie(cookie)
		}
		resp, err := env.ts.Client().Do(req)
		if err != nil {
			t.Fatalf("guest login: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("guest login status %d", resp.StatusCode)
		}
		var auth AuthResponse
		if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
			t.Fatalf("decode guest response: %v", err)
		}
		for _, ck := range resp.Cookies() {
			if ck.Name == guestCookieName {
				return auth, ck
			}
		}
		t.Fatal("guest login set no session cookie")
		return auth, nil
	}

	first, cookie := guestLogin(nil)
	firstID, _, err := env.auth.VerifyToken(first.Token)
	if err != nil {
		t.Fatalf("verify first guest token: %v", err)
	}

	second, _ := guestLogin(cookie)
	secondID, _, err := env.auth.VerifyToken(second.Token)
	if err != nil {
		t.Fatalf("verify resumed guest token: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("cookie round trip changed identity: %s vs %s", secondID, firstID)
	}

	third, _ := guestLogin(&http.Cookie{Name: guestCookieName, Value: "stale-session"})
	thirdID, _, err := env.auth.VerifyToken(third.Token)
	if err != nil {
		t.Fatalf("verify fresh guest token: %v", err)
	}
	if thirdID == firstID {
		t.Fatal("stale cookie should mint a fresh guest account")
	}
}
