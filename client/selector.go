// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
)

// AccountInfoSelector addresses the logged-in account's own profile.
// The connection keeps the profile current from server pushes, so
// there is no cache behind this selector and Flush is a no-op kept
// for interface symmetry.
type AccountInfoSelector struct {
	client *Client
}

// Fetch returns the account's current profile.
func (s AccountInfoSelector) Fetch(ctx context.Context) (AccountInfo, error) {
	snapshot, err := s.client.conn.FetchAccountInfo(ctx)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("client: fetching account info: %w", err)
	}
	return AccountInfo{
		Account:  s.client.conn.Account(),
		Nickname: snapshot.Nickname,
		Age:      snapshot.Age,
		Gender:   snapshot.Gender,
	}, nil
}

// Flush returns the selector unchanged.
func (s AccountInfoSelector) Flush() AccountInfoSelector { return s }

// FlushAndFetch is equivalent to Fetch.
func (s AccountInfoSelector) FlushAndFetch(ctx context.Context) (AccountInfo, error) {
	return s.Flush().Fetch(ctx)
}

// FriendListSelector addresses the complete friend list.
type FriendListSelector struct {
	client *Client
}

// Fetch returns the friend list, from cache when fresh.
func (s FriendListSelector) Fetch(ctx context.Context) (*FriendList, error) {
	return s.client.friendList.Get(ctx)
}

// Flush marks the cached friend list stale.
func (s FriendListSelector) Flush() FriendListSelector {
	s.client.friendList.MakeDirty()
	return s
}

// FlushAndFetch always performs a remote round trip.
func (s FriendListSelector) FlushAndFetch(ctx context.Context) (*FriendList, error) {
	return s.client.friendList.Refresh(ctx)
}

// FriendSelector addresses one friend. Friends live inside the friend
// list, so flushing goes through the friend-list cache and fetching
// may cost a full list round trip.
type FriendSelector struct {
	client  *Client
	account int64
}

// Account returns the friend's account ID.
func (s FriendSelector) Account() int64 { return s.account }

// Fetch returns the friend, or nil if the account is not a friend.
func (s FriendSelector) Fetch(ctx context.Context) (*Friend, error) {
	list, err := s.client.friendList.Get(ctx)
	if err != nil {
		return nil, err
	}
	return lookupFriend(list, s.account), nil
}

// Flush marks the whole cached friend list stale.
func (s FriendSelector) Flush() FriendSelector {
	s.client.friendList.MakeDirty()
	return s
}

// FlushAndFetch refreshes the friend list remotely and returns the
// friend from the fresh copy.
func (s FriendSelector) FlushAndFetch(ctx context.Context) (*Friend, error) {
	list, err := s.client.friendList.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return lookupFriend(list, s.account), nil
}

// Poke sends this friend a poke notification.
func (s FriendSelector) Poke(ctx context.Context) error {
	if err := s.client.conn.PokeFriend(ctx, s.account); err != nil {
		return fmt.Errorf("client: poking friend %d: %w", s.account, err)
	}
	return nil
}

func lookupFriend(list *FriendList, account int64) *Friend {
	friend, ok := list.Friends[account]
	if !ok {
		return nil
	}
	return &friend
}

// FriendGroupSelector addresses one friend group (folder). Friend
// groups live inside the friend list, so flushing goes through the
// friend-list cache.
type FriendGroupSelector struct {
	client *Client
	id     uint8
}

// ID returns the friend group ID.
func (s FriendGroupSelector) ID() uint8 { return s.id }

// Fetch returns the friend group, or nil if no such group exists.
func (s FriendGroupSelector) Fetch(ctx context.Context) (*FriendGroup, error) {
	list, err := s.client.friendList.Get(ctx)
	if err != nil {
		return nil, err
	}
	return lookupFriendGroup(list, s.id), nil
}

// Flush marks the whole cached friend list stale.
func (s FriendGroupSelector) Flush() FriendGroupSelector {
	s.client.friendList.MakeDirty()
	return s
}

// FlushAndFetch refreshes the friend list remotely and returns the
// friend group from the fresh copy.
func (s FriendGroupSelector) FlushAndFetch(ctx context.Context) (*FriendGroup, error) {
	list, err := s.client.friendList.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return lookupFriendGroup(list, s.id), nil
}

// Rename renames the friend group and marks the cached friend list
// stale.
func (s FriendGroupSelector) Rename(ctx context.Context, name string) error {
	if err := s.client.conn.RenameFriendGroup(ctx, s.id, name); err != nil {
		return fmt.Errorf("client: renaming friend group %d: %w", s.id, err)
	}
	s.client.friendList.MakeDirty()
	return nil
}

// Delete deletes the friend group, moving its members to the default
// group, and marks the cached friend list stale.
func (s FriendGroupSelector) Delete(ctx context.Context) error {
	if err := s.client.conn.DeleteFriendGroup(ctx, s.id); err != nil {
		return fmt.Errorf("client: deleting friend group %d: %w", s.id, err)
	}
	s.client.friendList.MakeDirty()
	return nil
}

func lookupFriendGroup(list *FriendList, id uint8) *FriendGroup {
	group, ok := list.FriendGroups[id]
	if !ok {
		return nil
	}
	return &group
}

// GroupSelector addresses one group by code.
type GroupSelector struct {
	client *Client
	code   int64
}

// Code returns the group code.
func (s GroupSelector) Code() int64 { return s.code }

// Fetch returns the group, or nil if the account is not a member.
func (s GroupSelector) Fetch(ctx context.Context) (*Group, error) {
	return s.client.groups.Get(ctx, s.code)
}

// Flush drops this group's cache entry.
func (s GroupSelector) Flush() GroupSelector {
	s.client.groups.MakeDirty(s.code)
	return s
}

// FlushAndFetch always performs a remote round trip for this group.
func (s GroupSelector) FlushAndFetch(ctx context.Context) (*Group, error) {
	return s.client.groups.Refresh(ctx, s.code)
}

// GroupsSelector addresses a batch of groups by code.
type GroupsSelector struct {
	client *Client
	codes  []int64
}

// Codes returns the group codes this selector addresses.
func (s GroupsSelector) Codes() []int64 { return s.codes }

// Fetch returns the requested groups, serving fresh cache entries and
// issuing one batched remote call for the rest. Codes the server does
// not know are absent from the result.
func (s GroupsSelector) Fetch(ctx context.Context) (map[int64]*Group, error) {
	return s.client.groups.GetBatch(ctx, s.codes)
}

// Flush drops the cache entries for every addressed code.
func (s GroupsSelector) Flush() GroupsSelector {
	s.client.groups.MakeDirtyBatch(s.codes)
	return s
}

// FlushAndFetch fetches every addressed code in one remote call.
func (s GroupsSelector) FlushAndFetch(ctx context.Context) (map[int64]*Group, error) {
	return s.client.groups.RefreshBatch(ctx, s.codes)
}

// AllGroupsSelector addresses the account's complete group set.
type AllGroupsSelector struct {
	client *Client
}

// Fetch fetches every group the account is a member of and replaces
// the group cache with the result; groups no longer present remotely
// are dropped. This always performs a remote round trip.
func (s AllGroupsSelector) Fetch(ctx context.Context) (map[int64]*Group, error) {
	return s.client.groups.RefreshAll(ctx)
}

// Flush drops every group cache entry.
func (s AllGroupsSelector) Flush() AllGroupsSelector {
	s.client.groups.MakeDirtyAll()
	return s
}

// FlushAndFetch is equivalent to Fetch, which already bypasses cache
// freshness.
func (s AllGroupsSelector) FlushAndFetch(ctx context.Context) (map[int64]*Group, error) {
	return s.Flush().Fetch(ctx)
}

// GroupMemberListSelector addresses one group's member roster.
type GroupMemberListSelector struct {
	client    *Client
	groupCode int64
}

// GroupCode returns the addressed group's code.
func (s GroupMemberListSelector) GroupCode() int64 { return s.groupCode }

// Fetch returns the roster, or nil if the account is not in the group.
func (s GroupMemberListSelector) Fetch(ctx context.Context) (*GroupMemberList, error) {
	return s.client.memberLists.Get(ctx, s.groupCode)
}

// Flush drops this roster's cache entry.
func (s GroupMemberListSelector) Flush() GroupMemberListSelector {
	s.client.memberLists.MakeDirty(s.groupCode)
	return s
}

// FlushAndFetch always performs a remote round trip for this roster.
func (s GroupMemberListSelector) FlushAndFetch(ctx context.Context) (*GroupMemberList, error) {
	return s.client.memberLists.Refresh(ctx, s.groupCode)
}

// GroupMemberSelector addresses one member of a group roster. Members
// live inside the roster, so flushing goes through the roster cache
// and fetching may cost a full roster round trip.
type GroupMemberSelector struct {
	client    *Client
	groupCode int64
	account   int64
}

// GroupCode returns the addressed group's code.
func (s GroupMemberSelector) GroupCode() int64 { return s.groupCode }

// Account returns the member's account ID.
func (s GroupMemberSelector) Account() int64 { return s.account }

// Fetch returns the member, or nil if the group or the member does
// not exist.
func (s GroupMemberSelector) Fetch(ctx context.Context) (*GroupMember, error) {
	list, err := s.client.memberLists.Get(ctx, s.groupCode)
	if err != nil {
		return nil, err
	}
	return lookupMember(list, s.account), nil
}

// Flush drops the whole roster's cache entry.
func (s GroupMemberSelector) Flush() GroupMemberSelector {
	s.client.memberLists.MakeDirty(s.groupCode)
	return s
}

// FlushAndFetch refreshes the roster remotely and returns the member
// from the fresh copy.
func (s GroupMemberSelector) FlushAndFetch(ctx context.Context) (*GroupMember, error) {
	list, err := s.client.memberLists.Refresh(ctx, s.groupCode)
	if err != nil {
		return nil, err
	}
	return lookupMember(list, s.account), nil
}

func lookupMember(list *GroupMemberList, account int64) *GroupMember {
	if list == nil {
		return nil
	}
	member, ok := list.Members[account]
	if !ok {
		return nil
	}
	return &member
}
