// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "github.com/silkworm-im/silkworm/protocol"

// AccountInfo is the logged-in account's own profile.
type AccountInfo struct {
	Account  int64
	Nickname string
	Age      uint8
	Gender   uint8
}

// Friend is one entry of the friend list.
type Friend struct {
	Account  int64
	Nickname string
	Remark   string
	FaceID   int16
	// GroupID is the friend group (folder) this friend is filed under.
	GroupID uint8
}

// FriendGroup is one of the user-defined folders the friend list is
// organized into.
type FriendGroup struct {
	ID          uint8
	Name        string
	FriendCount int32
	OnlineCount int32
	SeqID       uint8
}

// FriendList is the complete friend list, indexed for direct lookup.
type FriendList struct {
	// Friends is keyed by the friend's account ID.
	Friends map[int64]Friend
	// FriendGroups is keyed by friend group ID.
	FriendGroups map[uint8]FriendGroup
	TotalCount   int16
	OnlineCount  int16
}

// Group is one group the account is a member of.
type Group struct {
	// Account is the group's internal account number, distinct from
	// the user-visible Code.
	Account        int64
	Code           int64
	Name           string
	Memo           string
	OwnerAccount   int64
	CreateTime     uint32
	Level          uint32
	MemberCount    uint16
	MaxMemberCount uint16
	MuteAllUntil   int64
	MyMuteUntil    int64
	// LastMessageSeq is reported only by some fetch paths;
	// HasLastMessageSeq is false otherwise.
	LastMessageSeq    int64
	HasLastMessageSeq bool
}

// GroupMember is one member of a group roster.
type GroupMember struct {
	GroupCode              int64
	Account                int64
	Gender                 uint8
	Nickname               string
	CardName               string
	Level                  uint16
	JoinTime               int64
	LastSpeakTime          int64
	SpecialTitle           string
	SpecialTitleExpireTime int64
	MuteUntil              int64
	Permission             protocol.GroupMemberPermission
}

// GroupMemberList is a group's complete member roster.
type GroupMemberList struct {
	GroupCode int64
	// Members is keyed by the member's account ID.
	Members map[int64]GroupMember
}

func newFriendList(record protocol.FriendListRecord) FriendList {
	list := FriendList{
		Friends:      make(map[int64]Friend, len(record.Friends)),
		FriendGroups: make(map[uint8]FriendGroup, len(record.FriendGroups)),
		TotalCount:   record.TotalCount,
		OnlineCount:  record.OnlineCount,
	}
	for _, friend := range record.Friends {
		list.Friends[friend.Account] = Friend{
			Account:  friend.Account,
			Nickname: friend.Nickname,
			Remark:   friend.Remark,
			FaceID:   friend.FaceID,
			GroupID:  friend.GroupID,
		}
	}
	for _, group := range record.FriendGroups {
		list.FriendGroups[group.ID] = FriendGroup{
			ID:          group.ID,
			Name:        group.Name,
			FriendCount: group.FriendCount,
			OnlineCount: group.OnlineCount,
			SeqID:       group.SeqID,
		}
	}
	return list
}

func newGroup(record protocol.GroupRecord) Group {
	return Group{
		Account:           record.Account,
		Code:              record.Code,
		Name:              record.Name,
		Memo:              record.Memo,
		OwnerAccount:      record.OwnerAccount,
		CreateTime:        record.CreateTime,
		Level:             record.Level,
		MemberCount:       record.MemberCount,
		MaxMemberCount:    record.MaxMemberCount,
		MuteAllUntil:      record.MuteAllUntil,
		MyMuteUntil:       record.MyMuteUntil,
		LastMessageSeq:    record.LastMessageSeq,
		HasLastMessageSeq: record.HasLastMessageSeq,
	}
}

func newGroupMemberList(groupCode int64, records []protocol.GroupMemberRecord) GroupMemberList {
	list := GroupMemberList{
		GroupCode: groupCode,
		Members:   make(map[int64]GroupMember, len(records)),
	}
	for _, record := range records {
		list.Members[record.Account] = GroupMember{
			GroupCode:              record.GroupCode,
			Account:                record.Account,
			Gender:                 record.Gender,
			Nickname:               record.Nickname,
			CardName:               record.CardName,
			Level:                  record.Level,
			JoinTime:               record.JoinTime,
			LastSpeakTime:          record.LastSpeakTime,
			SpecialTitle:           record.SpecialTitle,
			SpecialTitleExpireTime: record.SpecialTitleExpireTime,
			MuteUntil:              record.MuteUntil,
			Permission:             record.Permission,
		}
	}
	return list
}
