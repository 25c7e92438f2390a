package validate

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
)

var registerOnce sync.Once

// Register 向 gin 的默认校验器注册业务标签：plan、tier、payment_method
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = RegisterOn(v)
	})
	return err
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("plan", validPlan); err != nil {
		return err
	}
	if err := v.RegisterValidation("tier", validTier); err != nil {
		return err
	}
	return v.RegisterValidation("payment_method", validManualMethod)
}

func validPlan(fl validator.FieldLevel) bool {
	return tier.IsPaidPlan(fl.Field().String())
}

// 写入时要求标准写法，不接受旧标签
func validTier(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, t := range tier.All {
		if string(t) == s {
			return true
		}
	}
	return false
}

// 手动提交的支付方式（自动支付走发起接口）
func validManualMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.PaymentMethodMobileMoney, model.PaymentMethodCrypto, model.PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}
