package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/courtmatch/internal/domain/model"
)

const (
	backendRedis = "redis"

	// candidateChunk bounds the number of keys per MGET.
	candidateChunk = 500
)

// RedisStore implements Store on Redis.
//
// Key layout, relative to the configured prefix:
//
//	user_seq          INCR counter for user ids
//	username:{name}   user id owning a username
//	user:{id}         hash with username and created_at
//	users             sorted set of user ids scored by id
//	profile:{id}      JSON profile
//	friends:{id}      set of befriended ids
//	checkins:{id}     hash of YYYY-MM-DD to JSON check-in
//
//	chat_thread_seq      INCR counter for thread ids
//	chat_message_seq     INCR counter for message ids
//	chat_pair:{u1}:{u2}  thread id of a participant pair, u1 < u2
//	chat_thread:{id}     hash with user1, user2 and created_at
//	chat_threads:{user}  set of thread ids the user takes part in
//	chat_messages:{id}   list of JSON messages in insertion order
type RedisStore struct {
	client redis.UniversalClient
	opts   storeOptions
}

// NewRedisStore wraps client and verifies the connection.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, opts: o}, nil
}

func (s *RedisStore) key(parts ...string) string {
	k := s.opts.keyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (s *RedisStore) userKey(id model.UserID) string    { return s.key("user", id.String()) }
func (s *RedisStore) profileKey(id model.UserID) string { return s.key("profile", id.String()) }
func (s *RedisStore) friendsKey(id model.UserID) string { return s.key("friends", id.String()) }

// CreateUser registers a username.
func (s *RedisStore) CreateUser(ctx context.Context, username string) (model.User, error) {
	defer observe(backendRedis, "create_user", time.Now())

	n, err := s.client.Incr(ctx, s.key("user_seq")).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("next user id: %w", err)
	}
	u := model.User{ID: model.UserID(n), Username: username, CreatedAt: s.opts.now().UTC()}

	nameKey := s.key("username", username)
	ok, err := s.client.SetNX(ctx, nameKey, u.ID.String(), 0).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("claim username %q: %w", username, err)
	}
	if !ok {
		return model.User{}, fmt.Errorf("%q: %w", username, ErrConflict)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.userKey(u.ID),
			"username", u.Username,
			"created_at", u.CreatedAt.Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, s.key("users"), redis.Z{Score: float64(u.ID), Member: u.ID.String()})
		return nil
	})
	if err != nil {
		if relErr := s.releaseUser(context.WithoutCancel(ctx), u.ID, nameKey); relErr != nil {
			err = errors.Join(err, fmt.Errorf("release username %q: %w", username, relErr))
		}
		return model.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return u, nil
}

// releaseUser undoes a partial registration so the username can be claimed
// again. ctx must outlive the caller's, which may already be done.
func (s *RedisStore) releaseUser(ctx context.Context, id model.UserID, nameKey string) error {
	if err := s.client.ZRem(ctx, s.key("users"), id.String()).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, s.userKey(id), nameKey).Err()
}

// User returns a user by id.
func (s *RedisStore) User(ctx context.Context, id model.UserID) (model.User, error) {
	defer observe(backendRedis, "user", time.Now())

	fields, err := s.client.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	if len(fields) == 0 {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return model.User{}, fmt.Errorf("user %d created_at: %w", id, err)
	}
	return model.User{ID: id, Username: fields["username"], CreatedAt: created.UTC()}, nil
}

// UpsertProfile creates or replaces a profile.
func (s *RedisStore) UpsertProfile(ctx context.Context, p model.Profile) error { //nolint:gocritic // hugeParam: profiles are values
	defer observe(backendRedis, "upsert_profile", time.Now())

	if err := s.requireUsers(ctx, p.UserID); err != nil {
		return err
	}
	raw, err := json.Marshal(newProfileRecord(&p))
	if err != nil {
		return fmt.Errorf("encode profile %d: %w", p.UserID, err)
	}
	if err := s.client.Set(ctx, s.profileKey(p.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.UserID, err)
	}
	return nil
}

// Profile returns a user's profile.
func (s *RedisStore) Profile(ctx context.Context, id model.UserID) (model.Profile, error) {
	defer observe(backendRedis, "profile", time.Now())

	if err := s.requireUsers(ctx, id); err != nil {
		return model.Profile{}, err
	}
	raw, err := s.client.Get(ctx, s.profileKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Profile{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("profile %d: %w", id, err)
	}
	return decodeProfile(id, raw)
}

// AddFriend records a one-way friendship.
func (s *RedisStore) AddFriend(ctx context.Context, userID, friendID model.UserID) error {
	defer observe(backendRedis, "add_friend", time.Now())

	if err := s.requireUsers(ctx, userID, friendID); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, s.friendsKey(userID), friendID.String()).Err(); err != nil {
		return fmt.Errorf("add friend %d -> %d: %w", userID, friendID, err)
	}
	return nil
}

// RemoveFriend deletes a friendship edge.
func (s *RedisStore) RemoveFriend(ctx context.Context, userID, friendID model.UserID) error {
	defer observe(backendRedis, "remove_friend", time.Now())

	if err := s.client.SRem(ctx, s.friendsKey(userID), friendID.String()).Err(); err != nil {
		return fmt.Errorf("remove friend %d -> %d: %w", userID, friendID, err)
	}
	return nil
}

// FriendIDs returns userID's friends in ascending order.
func (s *RedisStore) FriendIDs(ctx context.Context, userID model.UserID) ([]model.UserID, error) {
	defer observe(backendRedis, "friend_ids", time.Now())

	members, err := s.client.SMembers(ctx, s.friendsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("friends of %d: %w", userID, err)
	}
	out := make([]model.UserID, 0, len(members))
	for _, m := range members {
		if id, ok := model.ParseUserID(m); ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Candidates returns every user with its profile, ordered by id.
func (s *RedisStore) Candidates(ctx context.Context) ([]model.Candidate, error) {
	defer observe(backendRedis, "candidates", time.Now())

	members, err := s.client.ZRange(ctx, s.key("users"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	out := make([]model.Candidate, 0, len(members))
	for start := 0; start < len(members); start += candidateChunk {
		end := min(start+candidateChunk, len(members))
		chunk := members[start:end]

		keys := make([]string, len(chunk))
		ids := make([]model.UserID, len(chunk))
		for i, m := range chunk {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("candidate id %q: %w", m, err)
			}
			ids[i] = model.UserID(id)
			keys[i] = s.profileKey(ids[i])
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("candidate profiles: %w", err)
		}
		for i, v := range values {
			c := model.Candidate{UserID: ids[i]}
			if raw, ok := v.(string); ok {
				p, err := decodeProfile(ids[i], []byte(raw))
				if err != nil {
					return nil, err
				}
				c.Profile = &p
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// Count returns the number of registered users.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key("users")).Result()
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// requireUsers returns ErrUserNotFound naming the first id without a user hash.
func (s *RedisStore) requireUsers(ctx context.Context, ids ...model.UserID) error {
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.userKey(id)).Result()
		if err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", id, ErrUserNotFound)
		}
	}
	return nil
}

// profileRecord is the stored JSON form of a profile.
type profileRecord struct {
	SkillLevel          *float64 `json:"skill_level,omitempty"`
	Age                 *int     `json:"age,omitempty"`
	Location            string   `json:"location,omitempty"`
	PreferredCourtTypes []string `json:"preferred_court_types,omitempty"`
	PreferredMatchTypes []string `json:"preferred_match_types,omitempty"`
	PlayIntentions      []string `json:"play_intentions,omitempty"`
	PreferredLanguages  []string `json:"preferred_languages,omitempty"`
	DisplayName         string   `json:"display_name,omitempty"`
	Bio                 string   `json:"bio,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	YearsPlaying        *int     `json:"years_playing,omitempty"`
	DominantHand        string   `json:"dominant_hand,omitempty"`
	BackhandType        string   `json:"backhand_type,omitempty"`
}

func newProfileRecord(p *model.Profile) profileRecord {
	return profileRecord{
		SkillLevel:          p.SkillLevel,
		Age:                 p.Age,
		Location:            p.Location,
		PreferredCourtTypes: p.PreferredCourtTypes,
		PreferredMatchTypes: p.PreferredMatchTypes,
		PlayIntentions:      p.PlayIntentions,
		PreferredLanguages:  p.PreferredLanguages,
		DisplayName:         p.DisplayName,
		Bio:                 p.Bio,
		Gender:              p.Gender,
		YearsPlaying:        p.YearsPlaying,
		DominantHand:        p.DominantHand,
		BackhandType:        p.BackhandType,
	}
}

func decodeProfile(id model.UserID, raw []byte) (model.Profile, error) {
	var r profileRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile %d: %w", id, err)
	}
	return model.Profile{
		UserID:              id,
		SkillLevel:          r.SkillLevel,
		Age:                 r.Age,
		Location:            r.Location,
		PreferredCourtTypes: r.PreferredCourtTypes,
		PreferredMatchTypes: r.PreferredMatchTypes,
		PlayIntentions:      r.PlayIntentions,
		PreferredLanguages:  r.PreferredLanguages,
		DisplayName:         r.DisplayName,
		Bio:                 r.Bio,
		Gender:              r.Gender,
		YearsPlaying:        r.YearsPlaying,
		DominantHand:        r.DominantHand,
		BackhandType:        r.BackhandType,
	}, nil
}
