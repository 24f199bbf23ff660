package discount

import "errors"

var ErrCouponNotFound = errors.New("coupon not found")
