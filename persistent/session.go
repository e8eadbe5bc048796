package persistent

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/inkpot/inkpot"
	"github.com/tidwall/buntdb"
)

const SessionTTL = 30 * 24 * time.Hour

type Session struct {
	Id             string    `json:"id"`
	UserId         int64     `json:"userId"`
	Token          string    `json:"token"`
	Ip             string    `json:"ip"`
	UserAgent      string    `json:"userAgent"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s Session) ToDomain() inkpot.Session {
	return inkpot.Session{
		Id:             s.Id,
		UserId:         inkpot.UserId(s.UserId),
		Token:          s.Token,
		Ip:             s.Ip,
		UserAgent:      s.UserAgent,
		LastAccessedAt: s.LastAccessedAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

// SessionStore keeps sessions in buntdb under "session:<token>" with an
// "session_by_id:<id>" pointer to the token.
type SessionStore struct {
	Buntdb        *buntdb.DB
	ActivityStore inkpot.ActivityStore
}

var _ inkpot.SessionStore = (*SessionStore)(nil)

func NewSessionStore(bdb *buntdb.DB, activityStore inkpot.ActivityStore) (*SessionStore, error) {
	store := &SessionStore{Buntdb: bdb, ActivityStore: activityStore}
	if err := store.CreateIndexes(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SessionStore) CreateIndexes() error {
	err := s.Buntdb.CreateIndex("sessions", "session:*", buntdb.IndexJSON("userId"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return fmt.Errorf("create sessions index: %w", err)
	}
	return nil
}

func (s *SessionStore) RegisterNew(ctx context.Context, userId inkpot.UserId, ip string, userAgent string) (inkpot.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("generate token: %w", err)
	}
	id := uuid.New().String()

	err = s.ActivityStore.AddLog(ctx, userId, inkpot.Activity{Name: inkpot.ActivitySessionCreated, Data: map[string]interface{}{
		"ip":         ip,
		"userAgent":  userAgent,
		"session_id": id,
	}})
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("add session_created activity log: %w", err)
	}

	now := time.Now().UTC()
	session := Session{
		Id:             id,
		UserId:         int64(userId),
		Token:          token,
		Ip:             ip,
		UserAgent:      userAgent,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(SessionTTL),
	}
	serializedSession, err := json.Marshal(&session)
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("session serialize: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: SessionTTL}

		_, replaced, err := tx.Set("session_by_id:"+session.Id, session.Token, expireOptions)
		if err != nil {
			return fmt.Errorf("set map session id to auth token: %w", err)
		}
		if replaced {
			return fmt.Errorf("session id collision '%s'", session.Id)
		}

		_, _, err = tx.Set("session:"+session.Token, string(serializedSession), expireOptions)
		if err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("bunt update: %w", err)
	}
	return session.ToDomain(), nil
}

func getSession(tx *buntdb.Tx, token string) (Session, error) {
	var session Session
	serializedSession, err := tx.Get("session:" + token)
	if err != nil {
		return Session{}, fmt.Errorf("get serialized session: %w", err)
	}
	if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
		return Session{}, fmt.Errorf("deserialize session: %w", err)
	}
	return session, nil
}

func userSessions(tx *buntdb.Tx, userId inkpot.UserId) ([]Session, error) {
	pivot := fmt.Sprintf(`{"userId":%d}`, int64(userId))
	sessions := make([]Session, 0, 4)
	var listErr error
	err := tx.AscendEqual("sessions", pivot, func(key, value string) bool {
		var session Session
		if err := json.Unmarshal([]byte(value), &session); err != nil {
			listErr = fmt.Errorf("deserialize session %s: %w", key, err)
			return false
		}
		sessions = append(sessions, session)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ascend sessions: %w", err)
	}
	if listErr != nil {
		return nil, listErr
	}
	return sessions, nil
}

// ActiveSessions lists sessions of the user, most recently used first.
func (s *SessionStore) ActiveSessions(userId inkpot.UserId) ([]inkpot.Session, error) {
	var sessions []Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		sessions, err = userSessions(tx, userId)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("buntdb view: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastAccessedAt.After(sessions[j].LastAccessedAt)
	})
	ms := make([]inkpot.Session, len(sessions))
	for i, session := range sessions {
		ms[i] = session.ToDomain()
	}
	return ms, nil
}

func (s *SessionStore) AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (inkpot.Session, error) {
	var previousSession Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		previousSession, err = getSession(tx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return inkpot.Session{}, inkpot.ErrSessionNotFound
		}
		return inkpot.Session{}, fmt.Errorf("get session from buntdb: %w", err)
	}

	session := previousSession
	session.Ip = ip
	session.UserAgent = userAgent
	session.LastAccessedAt = time.Now().UTC()
	session.ExpiresAt = session.LastAccessedAt.Add(SessionTTL)
	serializedSession, err := json.Marshal(session)
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("serialize session: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: SessionTTL}
		_, _, err := tx.Set("session:"+token, string(serializedSession), expireOptions)
		if err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		_, _, err = tx.Set("session_by_id:"+session.Id, token, expireOptions)
		if err != nil {
			return fmt.Errorf("store session id: %w", err)
		}
		return nil
	})
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("refresh session in buntdb: %w", err)
	}

	userId := inkpot.UserId(session.UserId)
	if previousSession.Ip != session.Ip {
		activity := inkpot.Activity{Name: inkpot.ActivitySessionChangedIp, Data: map[string]interface{}{
			"session_id":  session.Id,
			"previous_ip": previousSession.Ip,
			"new_ip":      session.Ip,
		}}
		if err := s.ActivityStore.AddLog(ctx, userId, activity); err != nil {
			return inkpot.Session{}, fmt.Errorf("log ip change: %w", err)
		}
	}
	if previousSession.UserAgent != session.UserAgent {
		activity := inkpot.Activity{Name: inkpot.ActivitySessionChangedUserAgent, Data: map[string]interface{}{
			"session_id":          session.Id,
			"previous_user_agent": previousSession.UserAgent,
			"new_user_agent":      session.UserAgent,
		}}
		if err := s.ActivityStore.AddLog(ctx, userId, activity); err != nil {
			return inkpot.Session{}, fmt.Errorf("log useragent change: %w", err)
		}
	}
	return session.ToDomain(), nil
}

func deleteSession(tx *buntdb.Tx, session Session) error {
	if _, err := tx.Delete("session:" + session.Token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if _, err := tx.Delete("session_by_id:" + session.Id); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		return fmt.Errorf("delete session_by_id: %w", err)
	}
	return nil
}

func (s *SessionStore) InvalidateByAuthToken(authToken string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		session, err := getSession(tx, authToken)
		if err != nil {
			return err
		}
		return deleteSession(tx, session)
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return inkpot.ErrSessionNotFound
		}
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func (s *SessionStore) InvalidateAllExcept(keepToken string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		keep, err := getSession(tx, keepToken)
		if err != nil {
			return err
		}
		sessions, err := userSessions(tx, inkpot.UserId(keep.UserId))
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if session.Token == keepToken {
				continue
			}
			if err := deleteSession(tx, session); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return inkpot.ErrSessionNotFound
		}
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

// The url-safe alphabet never yields ':', the separator of buntdb key parts.
func generateSessionToken() (string, error) {
	const tokenBytes = 48
	rawToken := make([]byte, tokenBytes)
	bytesRead, err := crand.Read(rawToken)
	if err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	if bytesRead != tokenBytes {
		return "", fmt.Errorf("bytes read %d / required %d", bytesRead, tokenBytes)
	}
	return base64.RawURLEncoding.EncodeToString(rawToken), nil
}
