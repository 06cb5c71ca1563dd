package dbtest

var schema = []string{
	`CREATE TABLE item_types (
  code TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE sizes (
  code TEXT PRIMARY KEY,
  sort_order INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
  item_type TEXT NOT NULL REFERENCES item_types(code),
  image_ref TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE inventories (
  id TEXT PRIMARY KEY,
  item_type TEXT NOT NULL REFERENCES item_types(code) ON DELETE CASCADE,
  size TEXT NOT NULL REFERENCES sizes(code) ON DELETE CASCADE,
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_inventories_type_size UNIQUE (item_type, size)
)`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  item_id TEXT NULL REFERENCES items(id) ON DELETE SET NULL,
  item_name TEXT NOT NULL,
  inventory_id TEXT NULL REFERENCES inventories(id) ON DELETE SET NULL,
  quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_cart_items_cart_inventory_item UNIQUE (cart_id, inventory_id, item_id)
)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'pending',
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  postal_code TEXT NOT NULL DEFAULT '',
  ip_address TEXT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_orders_cart_pending ON orders (cart_id) WHERE status = 'pending'`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  item_id TEXT NULL REFERENCES items(id) ON DELETE SET NULL,
  item_name TEXT NOT NULL,
  inventory_id TEXT NULL REFERENCES inventories(id) ON DELETE SET NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  total_price NUMERIC(10,2) NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE shippings (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
  tracking_number TEXT NULL,
  estimated_delivery DATE NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE blacklisted_phones (
  id TEXT PRIMARY KEY,
  phone_number TEXT NOT NULL UNIQUE,
  reason TEXT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NULL
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}
