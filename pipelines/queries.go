package pipelines

// Filter queries select the (id, modified) rows of entities changed after
// the watermark bound to `:dt`. Collect queries select complete records of
// the identifiers bound to `:ids`.
const (
	filmworkFilterByFilmwork = `
SELECT fw.id, fw.modified
FROM content.film_work fw
WHERE fw.modified > :dt
`

	filmworkFilterByGenre = `
SELECT DISTINCT fw.id, g.modified
FROM content.film_work fw
JOIN content.genre_film_work gfw ON gfw.film_work_id = fw.id
JOIN content.genre g ON g.id = gfw.genre_id
WHERE g.modified > :dt
`

	filmworkFilterByPerson = `
SELECT DISTINCT fw.id, p.modified
FROM content.film_work fw
JOIN content.person_film_work pfw ON pfw.film_work_id = fw.id
JOIN content.person p ON p.id = pfw.person_id
WHERE p.modified > :dt
`

	filmworkCollect = `
SELECT
    fw.id,
    fw.title,
    fw.description,
    fw.rating,
    fw.type,
    fw.created,
    fw.modified,
    COALESCE(
        json_agg(DISTINCT jsonb_build_object(
            'person_role', pfw.role,
            'person_id', p.id,
            'person_name', p.full_name
        )) FILTER (WHERE p.id IS NOT NULL),
        '[]'
    ) AS persons,
    COALESCE(
        json_agg(DISTINCT jsonb_build_object(
            'id', g.id,
            'name', g.name
        )) FILTER (WHERE g.id IS NOT NULL),
        '[]'
    ) AS genres
FROM content.film_work fw
LEFT JOIN content.person_film_work pfw ON pfw.film_work_id = fw.id
LEFT JOIN content.person p ON p.id = pfw.person_id
LEFT JOIN content.genre_film_work gfw ON gfw.film_work_id = fw.id
LEFT JOIN content.genre g ON g.id = gfw.genre_id
WHERE fw.id IN (:ids)
GROUP BY fw.id
ORDER BY fw.modified
`

	personFilter = `
SELECT p.id, p.modified
FROM content.person p
WHERE p.modified > :dt
`

	personCollect = `
SELECT
    p.id,
    p.full_name,
    p.created,
    p.modified,
    COALESCE(
        json_agg(jsonb_build_object(
            'role', pfw.role,
            'filmwork', pfw.film_work_id
        ) ORDER BY pfw.created) FILTER (WHERE pfw.id IS NOT NULL),
        '[]'
    ) AS filmworks
FROM content.person p
LEFT JOIN content.person_film_work pfw ON pfw.person_id = p.id
WHERE p.id IN (:ids)
GROUP BY p.id
ORDER BY p.modified
`

	genreFilter = `
SELECT g.id, g.modified
FROM content.genre g
WHERE g.modified > :dt
`

	genreCollect = `
SELECT
    g.id,
    g.name,
    g.description,
    g.created,
    g.modified
FROM content.genre g
WHERE g.id IN (:ids)
ORDER BY g.modified
`
)
