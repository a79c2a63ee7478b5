package service

import (
	"context"
	"strconv"
	"strings"
)

// ScanService 扫码入口路由
//
// 客户端把 QR 原文原样上报，由服务端判定走哪条链路：
// - "REDEEM|<codeId>|<userUid>|<costPoints>"：收银端兑换码，扣分
// - 其余内容视为积分券号，加分
// 历史上还存在过固定字符串的演示码，已废弃，不再识别
type ScanService struct {
	earnService   *EarnService
	redeemService *RedeemService
}

func NewScanService(earnService *EarnService, redeemService *RedeemService) *ScanService {
	return &ScanService{
		earnService:   earnService,
		redeemService: redeemService,
	}
}

const redeemPayloadPrefix = "REDEEM|"

// ScanResult 扫码处理结果，Earn 与 Spend 只会有一个非空
type ScanResult struct {
	Kind  string       `json:"kind"` // "earn" | "redeem"
	Earn  *EarnResult  `json:"earn,omitempty"`
	Spend *SpendResult `json:"spend,omitempty"`
}

// Process 处理一次扫码
func (s *ScanService) Process(ctx context.Context, uid, payload string) (*ScanResult, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrQRFormatInvalid
	}

	if strings.HasPrefix(payload, redeemPayloadPrefix) {
		spend, err := s.ProcessRedeem(ctx, uid, payload)
		if err != nil {
			return nil, err
		}
		return &ScanResult{Kind: "redeem", Spend: spend}, nil
	}

	// 默认按积分券处理，QR 内容即券号
	earn, err := s.earnService.Redeem(ctx, uid, payload)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Kind: "earn", Earn: earn}, nil
}

// ProcessRedeem 只接受兑换码载荷的扫码入口
// 载荷不是兑换码格式时直接拒绝，绝不会误入加分链路
func (s *ScanService) ProcessRedeem(ctx context.Context, uid, payload string) (*SpendResult, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, redeemPayloadPrefix) {
		return nil, ErrQRFormatInvalid
	}

	codeID, qrUID, advisoryCost, err := parseRedeemPayload(payload)
	if err != nil {
		return nil, err
	}

	// 快路径归属校验；库内归属在事务里还会再校验一次
	if qrUID != uid {
		return nil, ErrPermissionDenied
	}

	return s.redeemService.CompleteCode(ctx, uid, codeID, advisoryCost)
}

// parseRedeemPayload 解析兑换码载荷：REDEEM|<codeId>|<userUid>|<costPoints>
func parseRedeemPayload(payload string) (codeID, userUID string, costPoints int64, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) < 4 || parts[1] == "" || parts[2] == "" {
		return "", "", 0, ErrQRFormatInvalid
	}

	cost, err := parseAdvisoryPoints(parts[3])
	if err != nil {
		return "", "", 0, ErrQRFormatInvalid
	}

	return parts[1], parts[2], cost, nil
}

// parseAdvisoryPoints 解析 QR 携带的积分数额
// 载荷里可能出现整数也可能出现小数，统一向零截断取整，绝不四舍五入
func parseAdvisoryPoints(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
