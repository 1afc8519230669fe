// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/silkworm-im/silkworm/cache"
	"github.com/silkworm-im/silkworm/lib/clock"
	"github.com/silkworm-im/silkworm/protocol"
)

// DefaultCacheTime is the starting TTL of every entity cache.
const DefaultCacheTime = time.Hour

// Client wraps a logged-in connection with entity caches and hands
// out selectors. It is safe for concurrent use.
type Client struct {
	conn   protocol.Conn
	logger *slog.Logger

	friendList  *cache.Single[FriendList]
	groups      *cache.Map[int64, Group]
	memberLists *cache.Map[int64, GroupMemberList]
}

// New wraps conn in a client façade. Caches start with
// DefaultCacheTime and can be retuned through the Set*CacheTime
// methods. A nil logger means slog.Default().
func New(conn protocol.Conn, clk clock.Clock, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{conn: conn, logger: logger}

	c.friendList = cache.NewSingle(clk, DefaultCacheTime,
		func(ctx context.Context) (*FriendList, error) {
			record, err := conn.FetchFriendList(ctx)
			if err != nil {
				return nil, fmt.Errorf("client: fetching friend list: %w", err)
			}
			list := newFriendList(record)
			return &list, nil
		})

	c.groups = cache.NewMap(clk, DefaultCacheTime, cache.MapFuncs[int64, Group]{
		FetchOne: func(ctx context.Context, code int64) (*Group, error) {
			record, err := conn.FetchGroup(ctx, code)
			if err != nil {
				return nil, fmt.Errorf("client: fetching group %d: %w", code, err)
			}
			if record == nil {
				return nil, nil
			}
			group := newGroup(*record)
			return &group, nil
		},
		FetchBatch: func(ctx context.Context, codes []int64) (map[int64]*Group, error) {
			records, err := conn.FetchGroups(ctx, codes)
			if err != nil {
				return nil, fmt.Errorf("client: fetching %d groups: %w", len(codes), err)
			}
			return groupsByCode(records), nil
		},
		FetchAll: func(ctx context.Context) (map[int64]*Group, error) {
			records, err := conn.FetchAllGroups(ctx)
			if err != nil {
				return nil, fmt.Errorf("client: fetching all groups: %w", err)
			}
			return groupsByCode(records), nil
		},
	})

	// The member-list fetch needs the group owner's account ID, so it
	// resolves the group through the groups cache first. A group the
	// account is not in has no visible roster.
	c.memberLists = cache.NewMap(clk, DefaultCacheTime, cache.MapFuncs[int64, GroupMemberList]{
		FetchOne: func(ctx context.Context, code int64) (*GroupMemberList, error) {
			group, err := c.groups.Get(ctx, code)
			if err != nil {
				return nil, err
			}
			if group == nil {
				return nil, nil
			}
			records, err := conn.FetchGroupMembers(ctx, code, group.OwnerAccount)
			if err != nil {
				return nil, fmt.Errorf("client: fetching members of group %d: %w", code, err)
			}
			list := newGroupMemberList(code, records)
			return &list, nil
		},
	})

	return c
}

func groupsByCode(records []protocol.GroupRecord) map[int64]*Group {
	result := make(map[int64]*Group, len(records))
	for _, record := range records {
		group := newGroup(record)
		result[group.Code] = &group
	}
	return result
}

// Account returns the logged-in account ID.
func (c *Client) Account() int64 { return c.conn.Account() }

// IsOnline reports whether the underlying connection is currently
// established and registered.
func (c *Client) IsOnline() bool { return c.conn.Status() == protocol.StatusOnline }

// SetFriendListCacheTime changes the friend-list cache TTL.
func (c *Client) SetFriendListCacheTime(ttl time.Duration) {
	c.friendList.SetCacheTime(ttl)
}

// SetGroupCacheTime changes the per-group cache TTL.
func (c *Client) SetGroupCacheTime(ttl time.Duration) {
	c.groups.SetCacheTime(ttl)
}

// SetGroupMemberListCacheTime changes the per-roster cache TTL.
func (c *Client) SetGroupMemberListCacheTime(ttl time.Duration) {
	c.memberLists.SetCacheTime(ttl)
}

// AccountInfo returns the selector for the account's own profile.
func (c *Client) AccountInfo() AccountInfoSelector {
	return AccountInfoSelector{client: c}
}

// GetAccountInfo fetches the account's own profile.
func (c *Client) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	return c.AccountInfo().Fetch(ctx)
}

// FriendList returns the selector for the full friend list.
func (c *Client) FriendList() FriendListSelector {
	return FriendListSelector{client: c}
}

// GetFriendList fetches the friend list, from cache when fresh.
func (c *Client) GetFriendList(ctx context.Context) (*FriendList, error) {
	return c.FriendList().Fetch(ctx)
}

// FlushFriendList marks the cached friend list stale.
func (c *Client) FlushFriendList() {
	c.friendList.MakeDirty()
}

// Friend returns the selector for one friend by account ID.
func (c *Client) Friend(account int64) FriendSelector {
	return FriendSelector{client: c, account: account}
}

// GetFriend fetches one friend; nil if the account is not a friend.
func (c *Client) GetFriend(ctx context.Context, account int64) (*Friend, error) {
	return c.Friend(account).Fetch(ctx)
}

// FriendGroup returns the selector for one friend group by ID.
func (c *Client) FriendGroup(id uint8) FriendGroupSelector {
	return FriendGroupSelector{client: c, id: id}
}

// GetFriendGroup fetches one friend group; nil if no such group.
func (c *Client) GetFriendGroup(ctx context.Context, id uint8) (*FriendGroup, error) {
	return c.FriendGroup(id).Fetch(ctx)
}

// Group returns the selector for one group by code.
func (c *Client) Group(code int64) GroupSelector {
	return GroupSelector{client: c, code: code}
}

// GetGroup fetches one group; nil if the account is not a member.
func (c *Client) GetGroup(ctx context.Context, code int64) (*Group, error) {
	return c.Group(code).Fetch(ctx)
}

// Groups returns the selector for a batch of groups by code.
func (c *Client) Groups(codes []int64) GroupsSelector {
	return GroupsSelector{client: c, codes: codes}
}

// GetGroups fetches the requested groups; codes the server does not
// know are absent from the result.
func (c *Client) GetGroups(ctx context.Context, codes []int64) (map[int64]*Group, error) {
	return c.Groups(codes).Fetch(ctx)
}

// AllGroups returns the selector for the account's complete group set.
func (c *Client) AllGroups() AllGroupsSelector {
	return AllGroupsSelector{client: c}
}

// GetAllGroups fetches every group the account is a member of,
// replacing the group cache with the result.
func (c *Client) GetAllGroups(ctx context.Context) (map[int64]*Group, error) {
	return c.AllGroups().Fetch(ctx)
}

// GroupMember returns the selector for one member of a group roster.
func (c *Client) GroupMember(groupCode, account int64) GroupMemberSelector {
	return GroupMemberSelector{client: c, groupCode: groupCode, account: account}
}

// GetGroupMember fetches one roster member; nil if the group or the
// member does not exist.
func (c *Client) GetGroupMember(ctx context.Context, groupCode, account int64) (*GroupMember, error) {
	return c.GroupMember(groupCode, account).Fetch(ctx)
}

// GroupMemberList returns the selector for a group's roster.
func (c *Client) GroupMemberList(groupCode int64) GroupMemberListSelector {
	return GroupMemberListSelector{client: c, groupCode: groupCode}
}

// GetGroupMemberList fetches a group's roster; nil if the account is
// not in the group.
func (c *Client) GetGroupMemberList(ctx context.Context, groupCode int64) (*GroupMemberList, error) {
	return c.GroupMemberList(groupCode).Fetch(ctx)
}

// CreateFriendGroup creates a new friend group and marks the cached
// friend list stale so the next read observes it.
func (c *Client) CreateFriendGroup(ctx context.Context, name string) error {
	if err := c.conn.CreateFriendGroup(ctx, name); err != nil {
		return fmt.Errorf("client: creating friend group %q: %w", name, err)
	}
	c.friendList.MakeDirty()
	c.logger.Info("created friend group", "name", name)
	return nil
}
