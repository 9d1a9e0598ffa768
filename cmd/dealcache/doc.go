// Dealcache manages the on-disk response cache used by the deals bot's
// vendor integrations (maps, food delivery, product and coupon catalogs).
//
// Usage:
//
//	dealcache cache stats                   # valid/expired/corrupt counts and disk usage
//	dealcache cache sweep --watch           # remove expired entries periodically
//	dealcache cache get <key>               # print a cached payload
//	dealcache cache set <key> <json> --category food
//	dealcache key stores lat=52.5 category=food
//	dealcache ttl                           # show the TTL policy
//	dealcache fetch coupons promocodes /v1/coupons city=berlin
package main
