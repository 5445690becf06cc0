package handler

type ContextKey string

var (
	SessionCtx         ContextKey = "session"
	MyInfoCtx          ContextKey = "myInfo"
	UserInfoCtx        ContextKey = "userInfo"
	ClientCtx          ContextKey = "client"
	ContentApprovalCtx ContextKey = "contentApproval"
)
