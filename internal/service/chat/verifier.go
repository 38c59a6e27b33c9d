package chat

import (
	"context"

	"contract_chat_server/pkg/errorx"
	"contract_chat_server/pkg/util/jwt"
)

// TokenVerifier 校验客户端 token 并返回用户 ID
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier 使用本服务签发的 Access Token 认证
type JWTVerifier struct{}

func (JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeUnauthorized, "invalid access token")
	}
	return claims.UserID, nil
}

var _ TokenVerifier = JWTVerifier{}
