package domain

import (
	"github.com/yungbote/knowledge-backend/internal/domain/knowledge"
	"github.com/yungbote/knowledge-backend/internal/domain/user"
)

type (
	KnowledgeKind  = knowledge.Kind
	QueryKind      = knowledge.QueryKind
	ConnectionKind = knowledge.ConnectionKind
)

const (
	KindBook       = knowledge.KindBook
	KindNote       = knowledge.KindNote
	KindCollection = knowledge.KindCollection

	QueryKindISBN   = knowledge.QueryKindISBN
	QueryKindSearch = knowledge.QueryKindSearch

	ConnectionReference        = knowledge.ConnectionReference
	ConnectionComment          = knowledge.ConnectionComment
	ConnectionPrimaryReference = knowledge.ConnectionPrimaryReference
)

type User = user.User

type Knowledge = knowledge.Knowledge
type Connection = knowledge.Connection
type Book = knowledge.Book
type MediaAttachment = knowledge.MediaAttachment
type KnowledgeSlugAlias = knowledge.SlugAlias
