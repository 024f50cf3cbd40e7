package mysql

// -----------------------------------------------------------------------------
// CATALOGUE
// -----------------------------------------------------------------------------

const upsertRoomTypeSQL = `
INSERT INTO room_types
  (id, name, description, area, max_guests, base_price)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  description = VALUES(description),
  area        = VALUES(area),
  max_guests  = VALUES(max_guests),
  base_price  = VALUES(base_price)
`

const upsertRoomSQL = `
INSERT INTO rooms
  (id, room_number, floor, is_available, image_url, description, room_type_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  room_number  = VALUES(room_number),
  floor        = VALUES(floor),
  is_available = VALUES(is_available),
  image_url    = VALUES(image_url),
  description  = VALUES(description),
  room_type_id = VALUES(room_type_id)
`

const upsertAmenitySQL = `
INSERT INTO amenities (id, name, description)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  description = VALUES(description)
`

const linkAmenitySQL = `INSERT IGNORE INTO room_amenities (room_id, amenity_id) VALUES (?, ?)`

// Rooms joined with their (optional) room type. Column order matches scanRoom.
const selectRoomSQL = `
SELECT
  r.id,
  r.room_number,
  r.floor,
  r.is_available,
  r.image_url,
  r.description,
  t.id,
  t.name,
  t.description,
  t.area,
  t.max_guests,
  t.base_price
FROM rooms r
LEFT JOIN room_types t ON t.id = r.room_type_id
`

const listRoomTypesSQL = `
SELECT id, name, description, area, max_guests, base_price
FROM room_types
ORDER BY id
`

const listRoomsSQL = selectRoomSQL + `ORDER BY r.id`

const getRoomSQL = selectRoomSQL + `WHERE r.id = ?`

const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

const listRoomAmenitiesSQL = `
SELECT ra.room_id, a.id, a.name, a.description
FROM room_amenities ra
JOIN amenities a ON a.id = ra.amenity_id
ORDER BY ra.room_id, a.id
`

const roomAmenitiesSQL = `
SELECT ra.room_id, a.id, a.name, a.description
FROM room_amenities ra
JOIN amenities a ON a.id = ra.amenity_id
WHERE ra.room_id = ?
ORDER BY a.id
`

// -----------------------------------------------------------------------------
// BOOKINGS & PAYMENTS
// -----------------------------------------------------------------------------

const bookingColumns = `id, room_id, user_id, check_in, check_out, price, status, created_at`

const getBookingSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

const bookingForUpdateSQL = getBookingSQL + ` FOR UPDATE`

// Cancelled bookings never block a room.
const activeBookingsSQL = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE room_id = ? AND status <> 'Cancelled'
ORDER BY check_in`

const confirmedEndingBySQL = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE status = 'Confirmed' AND check_out <= ?
ORDER BY id
LIMIT ?`

const insertBookingSQL = `
INSERT INTO bookings (room_id, user_id, check_in, check_out, price, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const updateBookingStatusSQL = `UPDATE bookings SET status = ? WHERE id = ?`

const paymentColumns = `id, booking_id, amount, method, transaction_id, status, paid_at`

const paymentByBookingSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ?`

const insertPaymentSQL = `
INSERT INTO payments (booking_id, amount, method, transaction_id, status, paid_at)
VALUES (?, ?, ?, ?, ?, ?)`

// Revenue counts every booking that was not cancelled.
const statsSQL = `
SELECT
  (SELECT COUNT(*) FROM bookings),
  (SELECT COALESCE(SUM(price), 0) FROM bookings WHERE status <> 'Cancelled'),
  (SELECT COUNT(*) FROM rooms),
  (SELECT COUNT(*) FROM room_types)`

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

const insertReviewSQL = `
INSERT INTO reviews (user_id, rating, description, created_at)
VALUES (?, ?, ?, ?)`

const listReviewsSQL = `
SELECT id, user_id, rating, description, created_at
FROM reviews
ORDER BY created_at DESC, id DESC
LIMIT ?`
