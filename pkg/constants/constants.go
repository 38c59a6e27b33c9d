package constants

const (
	CHANNEL_SIZE            = 100      // 连接出站队列默认大小
	GROUP_ROOM_PREFIX       = "group-" // 群聊广播房间名前缀
	ONLINE_USERS_KEY        = "chat:online_users"
	DIRECTORY_CACHE_PREFIX  = "chat:directory:"
	DIRECTORY_CACHE_MINUTES = 5 // 用户目录缓存有效期（分钟）
)
