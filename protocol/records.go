// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// AccountSnapshot is the logged-in account's own profile as the
// connection currently knows it. Reading it does not perform a network
// round-trip; the backend keeps it current from server pushes.
type AccountSnapshot struct {
	Nickname string
	Age      uint8
	Gender   uint8
}

// FriendRecord is one friend as returned by the friend-list fetch.
type FriendRecord struct {
	Account  int64
	Nickname string
	Remark   string
	FaceID   int16
	GroupID  uint8
}

// FriendGroupRecord is one friend group (the user-defined folders the
// friend list is organized into).
type FriendGroupRecord struct {
	ID          uint8
	Name        string
	FriendCount int32
	OnlineCount int32
	SeqID       uint8
}

// FriendListRecord is the full friend-list fetch result.
type FriendListRecord struct {
	Friends      []FriendRecord
	FriendGroups []FriendGroupRecord
	TotalCount   int16
	OnlineCount  int16
}

// GroupRecord is one group's info.
type GroupRecord struct {
	// Account is the group's internal account number, distinct from
	// the user-visible Code.
	Account         int64
	Code            int64
	Name            string
	Memo            string
	OwnerAccount    int64
	CreateTime      uint32
	Level           uint32
	MemberCount     uint16
	MaxMemberCount  uint16
	MuteAllUntil    int64
	MyMuteUntil     int64
	// LastMessageSeq is the sequence number of the group's newest
	// message. HasLastMessageSeq is false on fetch paths that do not
	// report it.
	LastMessageSeq    int64
	HasLastMessageSeq bool
}

// GroupMemberRecord is one member of a group roster.
type GroupMemberRecord struct {
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
	Permission             GroupMemberPermission
}

// GroupMemberPermission is a member's role within a group.
type GroupMemberPermission int

const (
	// PermissionMember is an ordinary member.
	PermissionMember GroupMemberPermission = iota
	// PermissionAdministrator can manage members.
	PermissionAdministrator
	// PermissionOwner created or owns the group.
	PermissionOwner
)

// String returns the permission name.
func (p GroupMemberPermission) String() string {
	switch p {
	case PermissionAdministrator:
		return "administrator"
	case PermissionOwner:
		return "owner"
	default:
		return "member"
	}
}
