package request

// OnlineUsersRequest GET /chat/online 查询参数
// limit 为空时返回全部在线用户
type OnlineUsersRequest struct {
	Limit int `form:"limit" json:"limit" binding:"omitempty,min=1,max=1000"`
}
