package mysql

// Batched multi-row upsert; rows carry the snapshot tag so stale records from
// a previous snapshot can be swept in the same transaction.
const upsertDaycaresPrefix = `INSERT INTO daycares
  (id, name, address, postal_code, phone, lat, lon,
   infant_spaces, toddler_spaces, preschool_spaces, kindergarten_spaces, schoolage_spaces, total_spaces,
   subsidy, cwelcc, snapshot_tag)
VALUES `

const upsertDaycaresOnDup = ` ON DUPLICATE KEY UPDATE
  name                = VALUES(name),
  address             = VALUES(address),
  postal_code         = VALUES(postal_code),
  phone               = VALUES(phone),
  lat                 = VALUES(lat),
  lon                 = VALUES(lon),
  infant_spaces       = VALUES(infant_spaces),
  toddler_spaces      = VALUES(toddler_spaces),
  preschool_spaces    = VALUES(preschool_spaces),
  kindergarten_spaces = VALUES(kindergarten_spaces),
  schoolage_spaces    = VALUES(schoolage_spaces),
  total_spaces        = VALUES(total_spaces),
  subsidy             = VALUES(subsidy),
  cwelcc              = VALUES(cwelcc),
  snapshot_tag        = VALUES(snapshot_tag),
  updated_at          = CURRENT_TIMESTAMP
`

const deleteStaleSQL = `DELETE FROM daycares WHERE snapshot_tag <> ?`

const listAllSQL = `
SELECT
  id, name, address, postal_code, phone, lat, lon,
  infant_spaces, toddler_spaces, preschool_spaces, kindergarten_spaces, schoolage_spaces, total_spaces,
  subsidy, cwelcc, snapshot_tag
FROM daycares
ORDER BY id
`
